package doi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paper-judge/config"

	"go.uber.org/zap"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// Fetcher löst DOIs über die Content Negotiation von doi.org zu BibTeX auf.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher erstellt einen neuen DOI-Fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// GetBibTeX holt den BibTeX-Eintrag zu einer DOI.
func (f *Fetcher) GetBibTeX(doi string) (string, error) {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return "", fmt.Errorf("doi must not be empty")
	}

	endpoint := fmt.Sprintf("%s/%s", strings.TrimRight(f.Config.DOIBaseURL, "/"), doi)
	log := f.Logger.With(zap.String("doi", doi), zap.String("url", endpoint))
	log.Debug("Rufe DOI-Resolver auf.")

	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/x-bibtex")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("doi %q not found", doi)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("doi resolver request failed with status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	log.Info("DOI erfolgreich zu BibTeX aufgelöst.")
	return string(body), nil
}
