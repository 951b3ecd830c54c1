package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"paper-judge/models"
)

// Parameter ist ein benanntes Schlüssel/Wert-Paar für einen Provider-Aufruf.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// RegistryService verwaltet die konfigurierten LLM-Modelle und deren Parameter.
type RegistryService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewRegistryService erstellt eine neue Instanz des RegistryService.
func NewRegistryService(db *gorm.DB, logger *zap.Logger) *RegistryService {
	return &RegistryService{DB: db, Logger: logger}
}

// UpsertModel legt ein Modell an oder bearbeitet ein bestehendes (Match über den Namen).
// Beim Bearbeiten wird der Parametersatz komplett ersetzt: alles löschen, dann die
// übergebenen nicht-leeren Paare neu einfügen. Es wird nie gemerged.
func (s *RegistryService) UpsertModel(ctx context.Context, host, name, key string, parameters []Parameter, edit bool) (*models.ModelConfig, error) {
	host = strings.TrimSpace(host)
	name = strings.TrimSpace(name)
	key = strings.TrimSpace(key)
	if name == "" {
		return nil, fmt.Errorf("model name must not be empty")
	}

	var model models.ModelConfig
	db := s.DB.WithContext(ctx)

	if edit {
		if err := db.Model(&models.ModelConfig{}).Where("name = ?", name).
			Updates(map[string]any{"host": host, "key": key}).Error; err != nil {
			return nil, fmt.Errorf("updating model %q: %w", name, err)
		}
		if err := db.Where("name = ?", name).First(&model).Error; err != nil {
			return nil, fmt.Errorf("loading model %q: %w", name, err)
		}
		if err := db.Where("model_id = ?", model.ID).Delete(&models.ModelParameter{}).Error; err != nil {
			return nil, fmt.Errorf("clearing parameters for model %q: %w", name, err)
		}
	} else {
		model = models.ModelConfig{Host: host, Name: name, Key: key}
		if err := db.Create(&model).Error; err != nil {
			return nil, fmt.Errorf("creating model %q: %w", name, err)
		}
	}

	for _, par := range parameters {
		if par.Name == "" || par.Value == "" {
			continue
		}
		p := models.ModelParameter{ModelID: model.ID, Name: par.Name, Value: par.Value}
		if err := db.Create(&p).Error; err != nil {
			return nil, fmt.Errorf("storing parameter %q for model %q: %w", par.Name, name, err)
		}
	}

	s.Logger.Info("Modell gespeichert",
		zap.Uint("model_id", model.ID),
		zap.String("name", model.Name),
		zap.Bool("edit", edit))
	return &model, nil
}

// ListModels gibt alle Modellkonfigurationen zurück, ohne deren Parameter.
func (s *RegistryService) ListModels(ctx context.Context) ([]models.ModelConfig, error) {
	var configs []models.ModelConfig
	if err := s.DB.WithContext(ctx).Order("id").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// ListParameters gibt die Parameter eines Modells als geordnete Liste zurück.
func (s *RegistryService) ListParameters(ctx context.Context, modelID uint) ([]Parameter, error) {
	var rows []models.ModelParameter
	if err := s.DB.WithContext(ctx).Where("model_id = ?", modelID).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	parameters := make([]Parameter, 0, len(rows))
	for _, row := range rows {
		parameters = append(parameters, Parameter{Name: row.Name, Value: row.Value})
	}
	return parameters, nil
}

// ParameterMap gibt die Parameter eines Modells als Mapping zurück, so wie sie
// der Klassifikator an den Provider durchreicht.
func (s *RegistryService) ParameterMap(ctx context.Context, modelID uint) (map[string]string, error) {
	parameters, err := s.ListParameters(ctx, modelID)
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, len(parameters))
	for _, par := range parameters {
		m[par.Name] = par.Value
	}
	return m, nil
}
