package models

// Classification ist das Urteil eines Modells zu einem Paper.
type Classification int

const (
	ClassificationUnknown Classification = 0
	ClassificationInclude Classification = 1
	ClassificationDiscard Classification = 2
	ClassificationError   Classification = 3
)

// String gibt das Urteil als lesbares Label zurück (z.B. für Metrik-Labels).
func (c Classification) String() string {
	switch c {
	case ClassificationInclude:
		return "include"
	case ClassificationDiscard:
		return "discard"
	case ClassificationError:
		return "error"
	default:
		return "unknown"
	}
}

// RunEntry ist das Urteil eines Modells zu einem Paper innerhalb eines Runs.
// Einträge sind append-only: ein erneuter Klassifikationslauf erzeugt eine
// weitere Zeile, es gibt keinen Unique-Constraint über (paper, model, run).
// Die Lebensdauer ist an den Run gebunden.
type RunEntry struct {
	ID             uint           `json:"run_entry_id" gorm:"primaryKey"`
	PaperID        uint           `json:"paper_id" gorm:"index;not null"`
	RunID          uint           `json:"run_id" gorm:"index;not null"`
	ModelID        uint           `json:"model_id" gorm:"index;not null"`
	Classification Classification `json:"classification"`
	Answer         string         `json:"answer" gorm:"type:text"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (RunEntry) TableName() string {
	return "run_entries"
}
