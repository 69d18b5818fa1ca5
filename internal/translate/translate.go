// Package translate wraps the external translation provider. The provider
// is an independent collaborator over HTTP: every call is bounded by a hard
// timeout and guarded by a circuit breaker, and any failure falls back to a
// small built-in dictionary. A slow or dead provider can degrade translation
// quality, never availability.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Query-Platform/pkg/resilience"
)

// Result is a completed translation.
type Result struct {
	Text       string `json:"text"`
	Translated string `json:"translated"`
	Source     string `json:"source"`
	Target     string `json:"target"`
	Provider   string `json:"provider"`
}

// Client calls the translation provider with fallback.
type Client struct {
	cfg     config.TranslateConfig
	http    *http.Client
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewClient creates a translation client. m may be nil.
func NewClient(cfg config.TranslateConfig, m *metrics.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{},
		breaker: resilience.NewCircuitBreaker("translate-provider", resilience.CircuitBreakerConfig{}),
		metrics: m,
		logger:  slog.Default().With("component", "translate"),
	}
}

// Translate translates text between Spanish and English. It tries the
// configured provider first, bounded by the configured timeout; on any
// failure it serves the dictionary fallback.
func (c *Client) Translate(ctx context.Context, text, source, target string) Result {
	if c.cfg.Endpoint != "" {
		var translated string
		err := c.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, c.cfg.Timeout, "translate", func(ctx context.Context) error {
				var err error
				translated, err = c.callProvider(ctx, text, source, target)
				return err
			})
		})
		if err == nil {
			return Result{
				Text:       text,
				Translated: translated,
				Source:     source,
				Target:     target,
				Provider:   "remote",
			}
		}
		c.logger.Warn("provider translation failed, using dictionary",
			"error", err, "source", source, "target", target)
	}
	if c.metrics != nil {
		c.metrics.TranslationFallbacks.Inc()
	}
	return Result{
		Text:       text,
		Translated: dictionaryTranslate(text, target),
		Source:     source,
		Target:     target,
		Provider:   "dictionary",
	}
}

type providerRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type providerResponse struct {
	Translated string `json:"translated"`
}

func (c *Client) callProvider(ctx context.Context, text, source, target string) (string, error) {
	body, err := json.Marshal(providerRequest{Text: text, Source: source, Target: target})
	if err != nil {
		return "", fmt.Errorf("encoding provider request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translation provider: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("translation provider returned %d", resp.StatusCode)
	}
	var decoded providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding provider response: %w", err)
	}
	return decoded.Translated, nil
}

// esToEn covers the question vocabulary that matters for keyword overlap
// when the provider is down. Anything unknown passes through unchanged.
var esToEn = map[string]string{
	"configuración": "configuration",
	"servidor":      "server",
	"documento":     "document",
	"página":        "page",
	"búsqueda":      "search",
	"archivo":       "file",
	"error":         "error",
	"instalación":   "installation",
	"usuario":       "user",
	"contraseña":    "password",
	"red":           "network",
	"proceso":       "process",
	"respaldo":      "backup",
	"seguridad":     "security",
}

var enToEs = invert(esToEn)

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}

// dictionaryTranslate does word-by-word dictionary lookup, preserving words
// it does not know.
func dictionaryTranslate(text, target string) string {
	dict := esToEn
	if target == "es" {
		dict = enToEs
	}
	words := strings.Fields(text)
	for i, word := range words {
		lower := strings.ToLower(word)
		if translated, ok := dict[lower]; ok {
			words[i] = translated
		}
	}
	return strings.Join(words, " ")
}
