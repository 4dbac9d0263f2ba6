package models

import (
	"time"

	"gorm.io/datatypes"
)

// Version is an immutable snapshot of a formula taken on save.
type Version struct {
	VersionID string    `json:"versionId"`
	FormulaID string    `json:"formulaId"`
	Name      string    `json:"name"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
	Snapshot  Formula   `json:"snapshot"`
}

// FormulaVersion is the append-only history row backing Version.
type FormulaVersion struct {
	VersionID string                      `gorm:"primaryKey;size:192" json:"versionId"`
	FormulaID string                      `gorm:"not null;index" json:"formulaId"`
	Name      string                      `json:"name"`
	Note      string                      `json:"note"`
	Snapshot  datatypes.JSONType[Formula] `gorm:"not null" json:"snapshot"`
	CreatedAt time.Time                   `gorm:"index" json:"createdAt"`
}

// ToVersion converts the stored row into a detached Version value.
func (v FormulaVersion) ToVersion() Version {
	return Version{
		VersionID: v.VersionID,
		FormulaID: v.FormulaID,
		Name:      v.Name,
		Note:      v.Note,
		CreatedAt: v.CreatedAt,
		Snapshot:  v.Snapshot.Data().Clone(),
	}
}
