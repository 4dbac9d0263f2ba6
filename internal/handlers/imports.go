package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"aloniva/internal/catalog"
	"aloniva/internal/formula"
	applog "aloniva/internal/log"
	"aloniva/models"
)

const maxFormulaUploadSize = 5 << 20 // 5 MiB

// importFormula accepts a multipart "formula_file" upload or a raw request
// body and returns the parsed formula as an unsaved working copy.
func importFormula(w http.ResponseWriter, r *http.Request, idx catalog.Index) {
	ctx := r.Context()

	fileName, data, mime, err := readFormulaUpload(r)
	if err != nil {
		applog.Error(ctx, "formula upload read failed", "error", err)
		writeJSONError(w, http.StatusBadRequest, "Unable to read the uploaded file. Please try again.")
		return
	}
	if len(bytes.TrimSpace(data)) == 0 {
		writeJSONError(w, http.StatusBadRequest, "Upload a JSON, CSV or PDF formula before running the import.")
		return
	}
	if hint := strings.TrimSpace(r.FormValue("formula_name")); hint != "" {
		fileName = hint
	}

	f, err := parseUpload(fileName, data, mime, idx)
	if err != nil {
		applog.Debug(ctx, "formula import rejected", "error", err, "mime", mime)
		if errors.Is(err, formula.ErrInvalidImport) {
			writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSONError(w, http.StatusBadRequest, "We couldn't interpret the uploaded document. Try a different format.")
		return
	}

	applog.Info(ctx, "formula imported", "formula_id", f.ID, "mime", mime)
	writeJSON(w, http.StatusOK, evaluate(f, idx))
}

func parseUpload(fileName string, data []byte, mime string, idx catalog.Index) (models.Formula, error) {
	name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if name == "." {
		name = ""
	}
	lower := strings.ToLower(mime)
	switch {
	case strings.Contains(lower, "pdf"):
		return formula.ParsePDF(data, name, idx)
	case strings.Contains(lower, "json"):
		return formula.ParseJSON(data, name)
	case strings.Contains(lower, "csv"):
		return formula.ParseCSV(bytes.NewReader(data), name, idx)
	case strings.HasPrefix(lower, "text/"):
		return formula.ParseSheet(string(data), name, idx)
	default:
		return models.Formula{}, fmt.Errorf("%w: unsupported file type %q", formula.ErrInvalidImport, mime)
	}
}

func readFormulaUpload(r *http.Request) (string, []byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(contentType), "multipart/") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxFormulaUploadSize+1))
		if err != nil {
			return "", nil, "", err
		}
		if len(body) > maxFormulaUploadSize {
			return "", nil, "", fmt.Errorf("body exceeds %d bytes", maxFormulaUploadSize)
		}
		name := r.URL.Query().Get("name")
		if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
			contentType = mimeTypeFromName(name)
		}
		return name, body, contentType, nil
	}

	if err := r.ParseMultipartForm(maxFormulaUploadSize); err != nil {
		return "", nil, "", err
	}
	file, header, err := r.FormFile("formula_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil, "", nil
		}
		return "", nil, "", err
	}
	defer file.Close()

	if header.Size > maxFormulaUploadSize {
		return "", nil, "", fmt.Errorf("file exceeds %d bytes", maxFormulaUploadSize)
	}

	buf := bytes.NewBuffer(make([]byte, 0, header.Size))
	if _, err := io.Copy(buf, file); err != nil {
		return "", nil, "", err
	}

	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = mimeTypeFromName(header.Filename)
	}

	return header.Filename, buf.Bytes(), mime, nil
}

func mimeTypeFromName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
