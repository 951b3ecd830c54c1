package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"paper-judge/models"
)

// newTestDB öffnet eine In-Memory-SQLite-Datenbank mit dem vollen Schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Paper{},
		&models.ModelConfig{},
		&models.ModelParameter{},
		&models.Run{},
		&models.RunEntry{},
	))
	return db
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
