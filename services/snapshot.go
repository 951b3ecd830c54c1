package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"paper-judge/config"
	"paper-judge/storage"
)

// SnapshotService lädt regelmäßig einen CSV-Abzug des gesamten Korpus nach S3,
// als Sicherung gegen Datenverlust zwischen den Datenbank-Backups.
type SnapshotService struct {
	Config     *config.Config
	S3Client   *s3.Client
	Aggregator *AggregatorService
	Logger     *zap.Logger
}

// NewSnapshotService erstellt eine neue Instanz des SnapshotService.
func NewSnapshotService(cfg *config.Config, s3Client *s3.Client, aggregator *AggregatorService, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{Config: cfg, S3Client: s3Client, Aggregator: aggregator, Logger: logger}
}

// Run erstellt einen Voll-Export (alle Paper, keine Urteilsdaten) und lädt ihn
// in den Snapshot-Bucket hoch.
func (s *SnapshotService) Run(ctx context.Context) error {
	data, err := s.Aggregator.ExportCSV(ctx, -1, nil)
	if err != nil {
		return fmt.Errorf("exporting corpus: %w", err)
	}

	key := fmt.Sprintf("papers-%s.csv", time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	link, err := storage.UploadFile(s.S3Client, s.Config.SnapshotS3Bucket, key, data, s.Config)
	if err != nil {
		return fmt.Errorf("uploading snapshot: %w", err)
	}

	s.Logger.Info("Korpus-Snapshot hochgeladen",
		zap.String("s3_link", link),
		zap.Int("bytes", len(data)))
	return nil
}
