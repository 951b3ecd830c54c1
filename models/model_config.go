package models

// ModelConfig repräsentiert einen erreichbaren LLM-Endpunkt.
// Der Name ist der eindeutige Schlüssel, nicht der Host - mehrere Konfigurationen
// können auf denselben Provider zeigen.
type ModelConfig struct {
	ID   uint   `json:"model_id" gorm:"primaryKey"`
	Host string `json:"host" gorm:"not null"`
	Name string `json:"name" gorm:"uniqueIndex;not null"`
	Key  string `json:"key,omitempty"` // API-Key, darf fehlen
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ModelConfig) TableName() string {
	return "models"
}

// ModelParameter ist ein benannter Parameter, der bei jedem Aufruf unverändert
// an den Provider durchgereicht wird (z.B. temperature). Die Menge wird beim
// Bearbeiten eines Modells komplett ersetzt, nie gemerged.
type ModelParameter struct {
	ID      uint   `json:"-" gorm:"primaryKey"`
	ModelID uint   `json:"-" gorm:"index;not null"`
	Name    string `json:"name" gorm:"not null"`
	Value   string `json:"value" gorm:"not null"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (ModelParameter) TableName() string {
	return "model_parameters"
}
