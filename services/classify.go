package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-judge/models"
	"paper-judge/providers/openai"
)

// answerInstruction ist der feste Anweisungsblock, der an jeden Prompt
// angehängt wird. Titel und Abstract werden escaped eingesetzt, damit
// Template-/Markup-Zeichen im Papertext nicht als Steuersyntax durchgehen.
const answerInstruction = "\n\nBelow is the title and abstract. You must only answer with INCLUDE or DISCARD and a 2-sentence reason of why.\n\nTitle:\n'%s'.\n\nAbstract:\n'%s'"

// thinkBlockPattern matcht <think>-Reasoning-Blöcke, non-greedy und über Zeilenumbrüche hinweg.
var thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ClassifyService schickt Paper an einen LLM-Endpunkt und persistiert das Urteil.
type ClassifyService struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	Registry *RegistryService
	LLM      *openai.Client
}

// NewClassifyService erstellt eine neue Instanz des ClassifyService.
func NewClassifyService(db *gorm.DB, logger *zap.Logger, registry *RegistryService, llm *openai.Client) *ClassifyService {
	return &ClassifyService{DB: db, Logger: logger, Registry: registry, LLM: llm}
}

// Result ist das Ergebnis eines einzelnen Klassifikationsaufrufs.
type Result struct {
	PaperID        uint                  `json:"paper_id"`
	ModelName      string                `json:"model_name"`
	Classification models.Classification `json:"classification"`
	Answer         string                `json:"answer"`
}

// Classify klassifiziert ein Paper mit dem benannten Modell innerhalb eines Runs.
//
// Provider-Fehler (Netz, Auth, kaputte Antwort, Timeout) brechen die Pipeline
// nicht ab: sie werden als ERROR-Urteil mit dem Fehlertext als Antwort
// persistiert. Nur Lookup-Fehler und Persistenz-Fehler gehen an den Aufrufer.
// Es gibt keinen automatischen Retry; ein erneuter Aufruf erzeugt eine weitere Zeile.
func (s *ClassifyService) Classify(ctx context.Context, paperID uint, modelName string, runID uint, prompt string) (*Result, error) {
	db := s.DB.WithContext(ctx)

	var paper models.Paper
	if err := db.First(&paper, paperID).Error; err != nil {
		return nil, fmt.Errorf("loading paper %d: %w", paperID, err)
	}

	var model models.ModelConfig
	if err := db.Where("name = ?", modelName).First(&model).Error; err != nil {
		return nil, fmt.Errorf("loading model %q: %w", modelName, err)
	}

	parameters, err := s.Registry.ParameterMap(ctx, model.ID)
	if err != nil {
		return nil, fmt.Errorf("loading parameters for model %q: %w", modelName, err)
	}

	log := s.Logger.With(
		zap.Uint("paper_id", paperID),
		zap.Uint("run_id", runID),
		zap.String("model", modelName))

	text := strings.TrimSpace(prompt) + fmt.Sprintf(answerInstruction,
		regexp.QuoteMeta(paper.Title), regexp.QuoteMeta(paper.Abstract))

	var classification models.Classification
	answer, err := s.LLM.Complete(ctx, openai.Request{
		Host:       model.Host,
		APIKey:     model.Key,
		Model:      model.Name,
		Text:       text,
		Parameters: parameters,
	})
	if err != nil {
		log.Warn("LLM-Aufruf fehlgeschlagen, Ergebnis wird als ERROR verbucht", zap.Error(err))
		classification = models.ClassificationError
		answer = err.Error()
	} else {
		answer = StripThinkBlocks(answer)
		classification = DeriveClassification(answer)
	}

	entry := models.RunEntry{
		PaperID:        paper.ID,
		RunID:          runID,
		ModelID:        model.ID,
		Classification: classification,
		Answer:         answer,
	}
	if err := db.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("storing run entry (paper %d, model %q): %w", paperID, modelName, err)
	}

	log.Info("Paper klassifiziert", zap.String("classification", classification.String()))
	return &Result{
		PaperID:        paper.ID,
		ModelName:      model.Name,
		Classification: classification,
		Answer:         answer,
	}, nil
}

// StripThinkBlocks entfernt <think>-Reasoning-Blöcke aus einer Modellantwort.
func StripThinkBlocks(answer string) string {
	return thinkBlockPattern.ReplaceAllString(answer, "")
}

// DeriveClassification leitet das Urteil aus dem (bereits bereinigten)
// Antworttext ab. Genau ein Schlüsselwort entscheidet; fehlen beide oder
// kommen beide vor, ist die Antwort nicht verwertbar und zählt als ERROR.
func DeriveClassification(answer string) models.Classification {
	lower := strings.ToLower(answer)
	hasInclude := strings.Contains(lower, "include")
	hasDiscard := strings.Contains(lower, "discard")

	switch {
	case hasInclude && !hasDiscard:
		return models.ClassificationInclude
	case hasDiscard && !hasInclude:
		return models.ClassificationDiscard
	default:
		return models.ClassificationError
	}
}
