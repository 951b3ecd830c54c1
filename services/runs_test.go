package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-judge/models"
)

func TestCreateRunKind(t *testing.T) {
	svc := NewRunService(newTestDB(t), testLogger())
	ctx := context.Background()

	full, err := svc.CreateRun(ctx, "alle", "Decide relevance.", nil)
	require.NoError(t, err)
	assert.Equal(t, models.RunKindFullCorpus, full.Kind)

	target, err := svc.CreateRun(ctx, "auswahl", "Decide relevance.", []uint{3, 7})
	require.NoError(t, err)
	assert.Equal(t, models.RunKindTargetSet, target.Kind)
}

func TestDeleteRunCascades(t *testing.T) {
	db := newTestDB(t)
	svc := NewRunService(db, testLogger())
	ctx := context.Background()

	run, err := svc.CreateRun(ctx, "pilot", "Decide relevance.", nil)
	require.NoError(t, err)
	other, err := svc.CreateRun(ctx, "kontrolle", "Decide relevance.", nil)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.RunEntry{PaperID: 1, RunID: run.ID, ModelID: 1, Classification: models.ClassificationInclude}).Error)
	require.NoError(t, db.Create(&models.RunEntry{PaperID: 2, RunID: run.ID, ModelID: 1, Classification: models.ClassificationDiscard}).Error)
	require.NoError(t, db.Create(&models.RunEntry{PaperID: 1, RunID: other.ID, ModelID: 1, Classification: models.ClassificationInclude}).Error)

	require.NoError(t, svc.DeleteRun(ctx, run.ID))

	var runCount, entryCount int64
	require.NoError(t, db.Model(&models.Run{}).Count(&runCount).Error)
	require.NoError(t, db.Model(&models.RunEntry{}).Count(&entryCount).Error)
	assert.EqualValues(t, 1, runCount)

	// Nur die Einträge des gelöschten Runs sind weg.
	assert.EqualValues(t, 1, entryCount)
}

func TestDeleteRunIdempotent(t *testing.T) {
	svc := NewRunService(newTestDB(t), testLogger())
	require.NoError(t, svc.DeleteRun(context.Background(), 42))
}

func TestListRuns(t *testing.T) {
	svc := NewRunService(newTestDB(t), testLogger())
	ctx := context.Background()

	_, err := svc.CreateRun(ctx, "erster", "p1", nil)
	require.NoError(t, err)
	_, err = svc.CreateRun(ctx, "zweiter", "p2", []uint{1})
	require.NoError(t, err)

	runs, err := svc.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "erster", runs[0].Alias)
	assert.Equal(t, "zweiter", runs[1].Alias)
}
