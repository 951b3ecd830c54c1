package models

import (
	"strings"
	"time"
)

// Paper repräsentiert einen bibliografischen Datensatz aus einem BibTeX-Import.
// Paper werden nur durch den Import angelegt und danach nie verändert.
type Paper struct {
	ID        uint      `json:"paper_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Title     string `json:"document_title" gorm:"type:text"`
	Venue     string `json:"publication_title"` // Journal bzw. Konferenzband
	Year      string `json:"year"`
	Volume    string `json:"volume"`
	Issue     string `json:"issue"`
	StartPage string `json:"start_page"`
	EndPage   string `json:"end_page"`
	Abstract  string `json:"abstract" gorm:"type:text"`
	DOI       string `json:"doi" gorm:"column:doi;index"`
	Keywords  string `json:"keywords" gorm:"type:text"`
	Publisher string `json:"publisher"`
	Authors   string `json:"authors" gorm:"type:text"`

	// Whole hält den unveränderten BibTeX-Quelltext des Eintrags.
	Whole string `json:"whole" gorm:"type:text"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Paper) TableName() string {
	return "papers"
}

// ValidDOI prüft die Invariante: eine DOI ist entweder leer oder beginnt mit "10.".
func (p *Paper) ValidDOI() bool {
	return p.DOI == "" || strings.HasPrefix(p.DOI, "10.")
}
