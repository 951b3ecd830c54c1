package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/nickng/bibtex"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-judge/models"
	"paper-judge/providers/doi"
)

// IngestService wandelt BibTeX-Quellen in Paper-Datensätze um und speichert sie.
type IngestService struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	DOIFetcher *doi.Fetcher
}

// NewIngestService erstellt eine neue Instanz des IngestService.
func NewIngestService(db *gorm.DB, logger *zap.Logger, doiFetcher *doi.Fetcher) *IngestService {
	return &IngestService{DB: db, Logger: logger, DOIFetcher: doiFetcher}
}

// InsertFromBibTeX parst BibTeX-Quelltext und legt die enthaltenen Einträge als
// Paper an. Verletzt ein Eintrag die DOI-Invariante, wird der gesamte Import
// abgebrochen; es gibt keine Teil-Schreibvorgänge.
func (s *IngestService) InsertFromBibTeX(ctx context.Context, content string) (int, error) {
	papers, err := ParseBibTeX(content)
	if err != nil {
		return 0, err
	}
	if len(papers) == 0 {
		return 0, fmt.Errorf("input contained no bibtex entries")
	}
	for i := range papers {
		if !papers[i].ValidDOI() {
			return 0, fmt.Errorf("invalid doi %q: must be empty or start with \"10.\"", papers[i].DOI)
		}
	}

	if err := s.DB.WithContext(ctx).Create(&papers).Error; err != nil {
		return 0, fmt.Errorf("storing papers: %w", err)
	}

	s.Logger.Info("Paper importiert", zap.Int("count", len(papers)))
	return len(papers), nil
}

// InsertFromText verarbeitet eine Texteingabe. Beginnt der Text nicht mit "@",
// wird er als DOI interpretiert und zuerst zu BibTeX aufgelöst.
func (s *IngestService) InsertFromText(ctx context.Context, text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("text input must not be empty")
	}
	if !strings.HasPrefix(text, "@") {
		resolved, err := s.DOIFetcher.GetBibTeX(text)
		if err != nil {
			return 0, fmt.Errorf("resolving doi: %w", err)
		}
		text = resolved
	}
	return s.InsertFromBibTeX(ctx, text)
}

// ParseBibTeX parst BibTeX-Quelltext und bildet die Einträge auf Paper-Modelle ab.
func ParseBibTeX(content string) ([]models.Paper, error) {
	// Kaufmanns-Und und Backslashes bringen die Parser regelmäßig aus dem
	// Tritt und tragen keine bibliografische Information.
	content = strings.NewReplacer("&", "", "\\", "").Replace(content)

	bib, err := bibtex.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing bibtex: %w", err)
	}

	papers := make([]models.Paper, 0, len(bib.Entries))
	for _, entry := range bib.Entries {
		papers = append(papers, mapEntryToPaper(entry))
	}
	return papers, nil
}

// mapEntryToPaper überführt einen BibTeX-Eintrag in das interne Paper-Modell.
func mapEntryToPaper(entry *bibtex.BibEntry) models.Paper {
	field := func(name string) string {
		if value, ok := entry.Fields[name]; ok {
			return strings.TrimSpace(value.String())
		}
		return ""
	}

	// Der Veranstaltungsort hängt vom Eintragstyp ab: Konferenzbeiträge
	// tragen ihn in booktitle, Zeitschriftenartikel in journal.
	var venue string
	switch strings.ToLower(entry.Type) {
	case "inproceedings":
		venue = field("booktitle")
	case "article":
		venue = field("journal")
	}

	startPage, endPage := splitPages(field("pages"))

	return models.Paper{
		Title:     field("title"),
		Venue:     venue,
		Year:      field("year"),
		Volume:    field("volume"),
		Issue:     field("number"),
		StartPage: startPage,
		EndPage:   endPage,
		Abstract:  field("abstract"),
		DOI:       field("doi"),
		Keywords:  field("keywords"),
		Publisher: field("publisher"),
		Authors:   joinAuthors(field("author")),
		Whole:     entry.String(),
	}
}

// splitPages zerlegt eine Seitenangabe wie "12–34" oder "12--34" in Start- und Endseite.
func splitPages(pages string) (string, string) {
	for _, sep := range []string{"–", "--", "-"} {
		if strings.Contains(pages, sep) {
			parts := strings.SplitN(pages, sep, 2)
			return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(pages), ""
}

// joinAuthors formt eine BibTeX-Autorenliste ("Nachname, Vorname and ...") in
// eine kommaseparierte Liste "Vorname Nachname" um.
func joinAuthors(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "No authors available"
	}

	var authors []string
	for _, author := range strings.Split(raw, " and ") {
		parts := strings.SplitN(author, ",", 2)
		if len(parts) == 2 {
			// "Nachname, Vorname" -> "Vorname Nachname"; manche Namen haben nur einen Teil.
			authors = append(authors, strings.TrimSpace(strings.TrimSpace(parts[1])+" "+strings.TrimSpace(parts[0])))
		} else {
			authors = append(authors, strings.TrimSpace(author))
		}
	}
	return strings.Join(authors, ", ")
}
