package models

// WarningLevel ranks validation findings.
type WarningLevel string

const (
	LevelBlocking WarningLevel = "blocking"
	LevelCaution  WarningLevel = "caution"
	LevelInfo     WarningLevel = "info"
)

// WarningRef points at the phase and item that triggered a warning.
type WarningRef struct {
	PhaseID string `json:"phaseId,omitempty"`
	ItemID  string `json:"itemId,omitempty"`
}

// Warning is a single validation finding.
type Warning struct {
	Level   WarningLevel `json:"level"`
	Message string       `json:"message"`
	Ref     *WarningRef  `json:"ref,omitempty"`
}
