package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-judge/models"
)

// RunService verwaltet die benannten Klassifikations-Runs.
type RunService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewRunService erstellt eine neue Instanz des RunService.
func NewRunService(db *gorm.DB, logger *zap.Logger) *RunService {
	return &RunService{DB: db, Logger: logger}
}

// CreateRun legt einen neuen Run an. Wird eine nicht-leere ID-Liste übergeben,
// ist der Run ein Target-Set-Run, sonst ein Full-Corpus-Run. Die IDs selbst
// werden nicht persistiert; welche Paper zum Run gehören, entscheidet der
// Aufrufer bei jedem classify-Aufruf erneut.
func (s *RunService) CreateRun(ctx context.Context, alias, prompt string, ids []uint) (*models.Run, error) {
	kind := models.RunKindFullCorpus
	if len(ids) > 0 {
		kind = models.RunKindTargetSet
	}

	run := models.Run{
		Alias:  strings.TrimSpace(alias),
		Kind:   kind,
		Prompt: strings.TrimSpace(prompt),
	}
	if err := s.DB.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}

	s.Logger.Info("Run angelegt",
		zap.Uint("run_id", run.ID),
		zap.String("alias", run.Alias),
		zap.Int("kind", int(run.Kind)))
	return &run, nil
}

// DeleteRun löscht einen Run samt aller zugehörigen RunEntries.
// Das Löschen einer nicht existierenden ID ist ein No-Op, kein Fehler.
func (s *RunService) DeleteRun(ctx context.Context, runID uint) error {
	db := s.DB.WithContext(ctx)
	if err := db.Where("run_id = ?", runID).Delete(&models.RunEntry{}).Error; err != nil {
		return err
	}
	if err := db.Delete(&models.Run{}, runID).Error; err != nil {
		return err
	}
	s.Logger.Info("Run gelöscht", zap.Uint("run_id", runID))
	return nil
}

// ListRuns gibt alle Runs zurück.
func (s *RunService) ListRuns(ctx context.Context) ([]models.Run, error) {
	var runs []models.Run
	if err := s.DB.WithContext(ctx).Order("id").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
