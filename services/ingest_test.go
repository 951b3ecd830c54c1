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
	"paper-judge/providers/doi"
)

const sampleBibTeX = `@article{lovelace2023,
  author = {Lovelace, Ada and Hopper, Grace},
  title = {Streaming Joins at Scale},
  journal = {Journal of Data Systems},
  year = {2023},
  volume = {12},
  number = {3},
  pages = {101--119},
  doi = {10.1000/jds.2023.101},
  publisher = {Example Press},
  keywords = {streams, joins},
  abstract = {We study incremental joins over unbounded streams.}
}`

func newIngestService(t *testing.T, doiBaseURL string) *IngestService {
	t.Helper()
	cfg := &config.Config{DOIBaseURL: doiBaseURL}
	return NewIngestService(newTestDB(t), testLogger(), doi.NewFetcher(cfg, testLogger()))
}

func TestParseBibTeXFieldMapping(t *testing.T) {
	papers, err := ParseBibTeX(sampleBibTeX)
	require.NoError(t, err)
	require.Len(t, papers, 1)

	paper := papers[0]
	assert.Equal(t, "Streaming Joins at Scale", paper.Title)
	assert.Equal(t, "Journal of Data Systems", paper.Venue)
	assert.Equal(t, "2023", paper.Year)
	assert.Equal(t, "12", paper.Volume)
	assert.Equal(t, "3", paper.Issue)
	assert.Equal(t, "101", paper.StartPage)
	assert.Equal(t, "119", paper.EndPage)
	assert.Equal(t, "10.1000/jds.2023.101", paper.DOI)
	assert.Equal(t, "Example Press", paper.Publisher)
	assert.Equal(t, "streams, joins", paper.Keywords)
	assert.Equal(t, "Ada Lovelace, Grace Hopper", paper.Authors)
	assert.NotEmpty(t, paper.Whole)
}

func TestParseBibTeXVenueByEntryType(t *testing.T) {
	papers, err := ParseBibTeX(`@inproceedings{x,
  title = {P},
  booktitle = {Proc. of SIGMOD},
  author = {Doe, Jane}
}`)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Proc. of SIGMOD", papers[0].Venue)
}

func TestParseBibTeXStripsMarkup(t *testing.T) {
	papers, err := ParseBibTeX(`@article{x,
  title = {Signals \& Systems},
  author = {Doe, Jane}
}`)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "Signals  Systems", papers[0].Title)
}

func TestParseBibTeXMissingAuthors(t *testing.T) {
	papers, err := ParseBibTeX(`@article{x,
  title = {Anonymous Work}
}`)
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, "No authors available", papers[0].Authors)
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		pages string
		start string
		end   string
	}{
		{"12--34", "12", "34"},
		{"12-34", "12", "34"},
		{"12–34", "12", "34"},
		{"42", "42", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		start, end := splitPages(tt.pages)
		assert.Equal(t, tt.start, start, tt.pages)
		assert.Equal(t, tt.end, end, tt.pages)
	}
}

func TestInsertFromBibTeX(t *testing.T) {
	svc := newIngestService(t, "https://doi.org")

	count, err := svc.InsertFromBibTeX(context.Background(), sampleBibTeX)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var stored models.Paper
	require.NoError(t, svc.DB.First(&stored).Error)
	assert.Equal(t, "Streaming Joins at Scale", stored.Title)
}

func TestInsertFromBibTeXRejectsInvalidDOI(t *testing.T) {
	svc := newIngestService(t, "https://doi.org")

	_, err := svc.InsertFromBibTeX(context.Background(), `@article{x,
  title = {Bad DOI},
  author = {Doe, Jane},
  doi = {https://doi.org/10.1000/x}
}`)
	require.Error(t, err)

	// Der Import ist atomar: die Invariante verhindert jede Schreibaktion.
	var count int64
	require.NoError(t, svc.DB.Model(&models.Paper{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestInsertFromBibTeXEmptyInputFails(t *testing.T) {
	svc := newIngestService(t, "https://doi.org")
	_, err := svc.InsertFromBibTeX(context.Background(), "")
	require.Error(t, err)
}

func TestInsertFromTextResolvesDOI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-bibtex", r.Header.Get("Accept"))
		assert.Equal(t, "/10.1000/jds.2023.101", r.URL.Path)
		w.Write([]byte(sampleBibTeX))
	}))
	defer server.Close()

	svc := newIngestService(t, server.URL)

	count, err := svc.InsertFromText(context.Background(), "10.1000/jds.2023.101")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertFromTextUnknownDOI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	svc := newIngestService(t, server.URL)

	_, err := svc.InsertFromText(context.Background(), "10.9999/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInsertFromTextBibTeXPassthrough(t *testing.T) {
	svc := newIngestService(t, "http://127.0.0.1:0")

	count, err := svc.InsertFromText(context.Background(), sampleBibTeX)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
