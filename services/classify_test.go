package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-judge/config"
	"paper-judge/models"
	"paper-judge/providers/openai"
)

func TestDeriveClassification(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   models.Classification
	}{
		{"only include", "INCLUDE. The paper matches the criteria.", models.ClassificationInclude},
		{"only discard", "DISCARD. Off topic for this review.", models.ClassificationDiscard},
		{"lowercase include", "I would include this one.", models.ClassificationInclude},
		{"neither keyword", "This paper is about databases.", models.ClassificationError},
		{"both keywords", "INCLUDE, no wait, DISCARD.", models.ClassificationError},
		{"empty answer", "", models.ClassificationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveClassification(tt.answer))
		})
	}
}

func TestStripThinkBlocks(t *testing.T) {
	answer := "<think>The abstract mentions\nLLMs, so include.</think>INCLUDE. Relevant to the survey."
	assert.Equal(t, "INCLUDE. Relevant to the survey.", StripThinkBlocks(answer))

	// Ohne Block bleibt alles unverändert.
	assert.Equal(t, "DISCARD. Not relevant.", StripThinkBlocks("DISCARD. Not relevant."))

	// Mehrere Blöcke werden alle entfernt.
	assert.Equal(t, "ab", StripThinkBlocks("<think>x</think>a<think>y</think>b"))
}

func newClassifyFixture(t *testing.T, llmHost string) (*ClassifyService, *models.Paper, *models.Run) {
	t.Helper()

	db := newTestDB(t)
	log := testLogger()

	paper := models.Paper{
		Title:    "Streaming Joins at Scale",
		Abstract: "We study incremental joins over unbounded streams.",
		Authors:  "Ada Lovelace",
	}
	require.NoError(t, db.Create(&paper).Error)

	model := models.ModelConfig{Host: llmHost, Name: "judge-7b", Key: "sk-test"}
	require.NoError(t, db.Create(&model).Error)
	require.NoError(t, db.Create(&models.ModelParameter{ModelID: model.ID, Name: "temperature", Value: "0"}).Error)

	run := models.Run{Alias: "pilot", Kind: models.RunKindFullCorpus, Prompt: "Decide relevance."}
	require.NoError(t, db.Create(&run).Error)

	registry := NewRegistryService(db, log)
	llm := openai.NewClient(&config.Config{LLMTimeoutSeconds: 5}, log)
	return NewClassifyService(db, log, registry, llm), &paper, &run
}

func TestClassifyStoresIncludeVerdict(t *testing.T) {
	reply := "INCLUDE. The paper clearly targets stream processing. It fits the survey scope."
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"` + reply + `"}}]}`))
	}))
	defer server.Close()

	svc, paper, run := newClassifyFixture(t, server.URL)

	result, err := svc.Classify(context.Background(), paper.ID, "judge-7b", run.ID, "Decide relevance.")
	require.NoError(t, err)
	assert.Equal(t, paper.ID, result.PaperID)
	assert.Equal(t, "judge-7b", result.ModelName)
	assert.Equal(t, models.ClassificationInclude, result.Classification)
	assert.Equal(t, reply, result.Answer)

	var entries []models.RunEntry
	require.NoError(t, svc.DB.Where("run_id = ?", run.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, paper.ID, entries[0].PaperID)
	assert.Equal(t, models.ClassificationInclude, entries[0].Classification)
	assert.Equal(t, reply, entries[0].Answer)
}

func TestClassifyProviderFailureStoresErrorEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc, paper, run := newClassifyFixture(t, server.URL)

	// Der Provider-Fehler bricht den Aufruf nicht ab, er wird als ERROR verbucht.
	result, err := svc.Classify(context.Background(), paper.ID, "judge-7b", run.ID, "Decide relevance.")
	require.NoError(t, err)
	assert.Equal(t, models.ClassificationError, result.Classification)
	assert.Contains(t, result.Answer, "500")

	var entry models.RunEntry
	require.NoError(t, svc.DB.Where("run_id = ?", run.ID).First(&entry).Error)
	assert.Equal(t, models.ClassificationError, entry.Classification)
	assert.Equal(t, result.Answer, entry.Answer)
}

func TestClassifyUnknownPaperFails(t *testing.T) {
	svc, _, run := newClassifyFixture(t, "http://127.0.0.1:0")

	_, err := svc.Classify(context.Background(), 9999, "judge-7b", run.ID, "Decide relevance.")
	require.Error(t, err)

	// Lookup-Fehler dürfen keinen Eintrag hinterlassen.
	var count int64
	require.NoError(t, svc.DB.Model(&models.RunEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestClassifyUnknownModelFails(t *testing.T) {
	svc, paper, run := newClassifyFixture(t, "http://127.0.0.1:0")

	_, err := svc.Classify(context.Background(), paper.ID, "no-such-model", run.ID, "Decide relevance.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no-such-model")
}

func TestClassifyRepeatAppendsEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"DISCARD. Out of scope. Not relevant."}}]}`))
	}))
	defer server.Close()

	svc, paper, run := newClassifyFixture(t, server.URL)

	for i := 0; i < 2; i++ {
		_, err := svc.Classify(context.Background(), paper.ID, "judge-7b", run.ID, "Decide relevance.")
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, svc.DB.Model(&models.RunEntry{}).
		Where("run_id = ? AND paper_id = ?", run.ID, paper.ID).
		Count(&count).Error)
	assert.EqualValues(t, 2, count)
}
