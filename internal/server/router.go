package server

import (
	"context"
	"net/http"

	"aloniva/internal/handlers"
	applog "aloniva/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")

	public := map[string]http.HandlerFunc{
		"/healthz":      handlers.Health,
		"/login":        handlers.Login,
		"/signup":       handlers.Signup,
		"/logout":       handlers.Logout,
		"/api/products": handlers.Products,
		"/api/routine":  handlers.Routine,
	}
	for path, h := range public {
		mux.HandleFunc(path, h)
		applog.Debug(context.Background(), "route registered", "path", path)
	}

	protected := map[string]http.HandlerFunc{
		"/app/api/ingredients":  handlers.IngredientResource,
		"/app/api/ingredients/": handlers.IngredientResource,
		"/app/api/templates":    handlers.Templates,
		"/app/api/formulas":     handlers.FormulaResource,
		"/app/api/formulas/":    handlers.FormulaResource,
		"/app/api/versions/":    handlers.VersionResource,
		"/app/api/preferences":  handlers.Preferences,
	}
	for path, h := range protected {
		mux.Handle(path, handlers.RequireAuthentication(h))
		applog.Debug(context.Background(), "route registered", "path", path, "protected", true)
	}
	return mux
}
