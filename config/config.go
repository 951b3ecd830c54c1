package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"8080"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Timeout für den synchronen Roundtrip zum LLM-Provider. Läuft er ab,
	// wird das Ergebnis als ERROR-Eintrag verbucht statt die Anfrage hängen zu lassen.
	LLMTimeoutSeconds int `envconfig:"LLM_TIMEOUT_SECONDS" default:"120"`

	// DOI-Resolver für Texteingaben, die kein BibTeX sind.
	DOIBaseURL string `envconfig:"DOI_BASE_URL" default:"https://doi.org"`

	// Optionaler Korpus-Snapshot nach S3. Ohne vollständige Zugangsdaten wird kein Job gestartet.
	SnapshotSchedule string `envconfig:"SNAPSHOT_SCHEDULE" default:"0 3 * * *"`
	SnapshotS3Key    string `envconfig:"SNAPSHOT_S3_KEY"`
	SnapshotS3Secret string `envconfig:"SNAPSHOT_S3_SECRET"`
	SnapshotS3URL    string `envconfig:"SNAPSHOT_S3_URL"`
	SnapshotS3Region string `envconfig:"SNAPSHOT_S3_REGION"`
	SnapshotS3Bucket string `envconfig:"SNAPSHOT_S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// SnapshotConfigured meldet, ob die S3-Zugangsdaten für den Snapshot-Job vollständig sind.
func (c *Config) SnapshotConfigured() bool {
	return c.SnapshotS3Bucket != "" && c.SnapshotS3URL != "" && c.SnapshotS3Key != "" && c.SnapshotS3Secret != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
