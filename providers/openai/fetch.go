package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"paper-judge/config"

	"go.uber.org/zap"
)

// Client kapselt die Kommunikation mit einem OpenAI-kompatiblen
// Chat-Completions-Endpunkt. Host, Key und Modellname kommen pro Aufruf aus
// der jeweiligen ModelConfig, nicht aus der Client-Konfiguration.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
	http   *http.Client
}

// NewClient erstellt einen neuen Chat-Completions-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		Config: cfg,
		Logger: logger,
		http: &http.Client{
			Timeout: time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		},
	}
}

// Request beschreibt einen einzelnen Chat-Completion-Aufruf.
type Request struct {
	Host       string
	APIKey     string
	Model      string
	Text       string
	Parameters map[string]string
}

// Complete sendet den Text als einzelne User-Message und gibt den Antworttext
// des Modells zurück. Die Parameter werden unverändert in das Message-Objekt
// übernommen; welche Schlüssel gültig sind, entscheidet allein der Provider.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	message := map[string]any{
		"role": "user",
		"content": []map[string]any{
			{"type": "text", "text": req.Text},
		},
	}
	for name, value := range req.Parameters {
		message[name] = value
	}

	payload := map[string]any{
		"model":    req.Model,
		"messages": []any{message},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	endpoint := strings.TrimRight(req.Host, "/") + "/chat/completions"
	log := c.Logger.With(zap.String("endpoint", endpoint), zap.String("model", req.Model))
	log.Debug("Sende Chat-Completion-Anfrage.")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("completion request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var completion Response
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	log.Debug("Chat-Completion-Antwort erhalten", zap.Int("answer_length", len(completion.Choices[0].Message.Content)))
	return completion.Choices[0].Message.Content, nil
}
