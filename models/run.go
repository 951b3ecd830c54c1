package models

import "time"

// RunKind unterscheidet Runs über den gesamten Korpus von Runs mit explizit
// ausgewählten Papern.
type RunKind int

const (
	RunKindFullCorpus RunKind = 0
	RunKindTargetSet  RunKind = 1
)

// Run ist ein benannter Stapel Klassifikationsarbeit mit einem gemeinsamen Prompt.
// Nach dem Anlegen ist ein Run unveränderlich; er kann nur noch gelöscht werden,
// was alle zugehörigen RunEntries mitnimmt. Die Ziel-IDs eines Target-Set-Runs
// werden bewusst nicht gespeichert - die Auswahl trifft der Aufrufer beim
// Klassifizieren erneut.
type Run struct {
	ID        uint      `json:"run_id" gorm:"primaryKey"`
	Alias     string    `json:"alias"`
	Kind      RunKind   `json:"type"`
	Prompt    string    `json:"prompt" gorm:"type:text"`
	CreatedAt time.Time `json:"created"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Run) TableName() string {
	return "runs"
}
