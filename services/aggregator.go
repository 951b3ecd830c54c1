package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-judge/models"
)

// AggregatorService fügt RunEntries wieder mit Papern und Modellen zusammen,
// für die Run-Ansicht und den CSV-Export.
type AggregatorService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewAggregatorService erstellt eine neue Instanz des AggregatorService.
func NewAggregatorService(db *gorm.DB, logger *zap.Logger) *AggregatorService {
	return &AggregatorService{DB: db, Logger: logger}
}

// ModelResponse ist das Urteil eines Modells zu einem Paper innerhalb eines Runs.
type ModelResponse struct {
	ModelName      string                `json:"model_name"`
	Classification models.Classification `json:"classification"`
	Answer         string                `json:"answer"`
}

// PaperView bündelt die Anzeige-Felder eines Papers mit allen Urteilen eines Runs.
type PaperView struct {
	PaperID        uint            `json:"paper_id"`
	Title          string          `json:"document_title"`
	Authors        string          `json:"authors"`
	DOI            string          `json:"doi"`
	Year           string          `json:"year"`
	Abstract       string          `json:"abstract"`
	ModelResponses []ModelResponse `json:"model_responses"`
}

// entryRow ist die Join-Zeile aus run_entries und models.
type entryRow struct {
	PaperID        uint
	ModelName      string
	Classification models.Classification
	Answer         string
}

// runResponses lädt alle Einträge eines Runs und gruppiert sie pro Paper.
// Die Reihenfolge ist deterministisch: Paper-ID aufsteigend, Einträge in
// Einfüge-Reihenfolge.
func (s *AggregatorService) runResponses(ctx context.Context, runID uint) ([]uint, map[uint][]ModelResponse, error) {
	var rows []entryRow
	err := s.DB.WithContext(ctx).
		Table("run_entries").
		Select("run_entries.paper_id, models.name AS model_name, run_entries.classification, run_entries.answer").
		Joins("JOIN models ON models.id = run_entries.model_id").
		Where("run_entries.run_id = ?", runID).
		Order("run_entries.paper_id, run_entries.id").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("loading entries for run %d: %w", runID, err)
	}

	var order []uint
	byPaper := make(map[uint][]ModelResponse)
	for _, row := range rows {
		if _, seen := byPaper[row.PaperID]; !seen {
			order = append(order, row.PaperID)
		}
		byPaper[row.PaperID] = append(byPaper[row.PaperID], ModelResponse{
			ModelName:      row.ModelName,
			Classification: row.Classification,
			Answer:         row.Answer,
		})
	}
	return order, byPaper, nil
}

// loadPapers holt die Paper zu den gegebenen IDs als Mapping.
func (s *AggregatorService) loadPapers(ctx context.Context, ids []uint) (map[uint]models.Paper, error) {
	byID := make(map[uint]models.Paper, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	var papers []models.Paper
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&papers).Error; err != nil {
		return nil, err
	}
	for _, paper := range papers {
		byID[paper.ID] = paper
	}
	return byID, nil
}

// GetRunView gibt für jedes Paper mit mindestens einem Eintrag im Run die
// Anzeige-Felder plus die Urteile aller Modelle zurück. Paper ohne Eintrag
// tauchen nicht auf; pro RunEntry gibt es genau ein Response-Tupel.
func (s *AggregatorService) GetRunView(ctx context.Context, runID uint) ([]PaperView, error) {
	order, byPaper, err := s.runResponses(ctx, runID)
	if err != nil {
		return nil, err
	}
	papers, err := s.loadPapers(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("loading papers for run %d: %w", runID, err)
	}

	views := make([]PaperView, 0, len(order))
	for _, paperID := range order {
		paper := papers[paperID]
		views = append(views, PaperView{
			PaperID:        paperID,
			Title:          paper.Title,
			Authors:        paper.Authors,
			DOI:            paper.DOI,
			Year:           paper.Year,
			Abstract:       paper.Abstract,
			ModelResponses: byPaper[paperID],
		})
	}
	return views, nil
}

// paperColumns sind die bibliografischen Spalten jedes Exports.
var paperColumns = []string{
	"paper_id", "document_title", "publication_title", "year", "volume", "issue",
	"start_page", "end_page", "abstract", "doi", "keywords", "publisher", "authors",
}

func paperRecord(p models.Paper) []string {
	return []string{
		strconv.FormatUint(uint64(p.ID), 10),
		p.Title, p.Venue, p.Year, p.Volume, p.Issue,
		p.StartPage, p.EndPage, p.Abstract, p.DOI, p.Keywords, p.Publisher, p.Authors,
	}
}

// ExportCSV serialisiert einen Run als flaches CSV-Dokument. Bei runID == -1
// werden alle Paper mit ihren bibliografischen Feldern exportiert, ohne
// Urteilsdaten. Sonst entspricht der Export der Run-Ansicht: die Urteile
// landen als eingebetteter JSON-Wert in der Spalte model_responses, und das
// optionale Konsens-Label wird über die Paper-ID zugeordnet.
func (s *AggregatorService) ExportCSV(ctx context.Context, runID int, consensus map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if runID == -1 {
		var papers []models.Paper
		if err := s.DB.WithContext(ctx).Order("id").Find(&papers).Error; err != nil {
			return nil, fmt.Errorf("loading papers: %w", err)
		}
		if err := w.Write(paperColumns); err != nil {
			return nil, err
		}
		for _, paper := range papers {
			if err := w.Write(paperRecord(paper)); err != nil {
				return nil, err
			}
		}
	} else {
		order, byPaper, err := s.runResponses(ctx, uint(runID))
		if err != nil {
			return nil, err
		}
		papers, err := s.loadPapers(ctx, order)
		if err != nil {
			return nil, fmt.Errorf("loading papers for run %d: %w", runID, err)
		}

		header := append(append([]string{}, paperColumns...), "model_responses", "consensus")
		if err := w.Write(header); err != nil {
			return nil, err
		}
		for _, paperID := range order {
			responses, err := json.Marshal(byPaper[paperID])
			if err != nil {
				return nil, fmt.Errorf("encoding responses for paper %d: %w", paperID, err)
			}
			record := append(paperRecord(papers[paperID]),
				string(responses),
				consensus[strconv.FormatUint(uint64(paperID), 10)])
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
