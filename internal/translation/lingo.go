package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const DefaultLingoURL = "https://engine.lingo.dev/i18n"

// LingoBackend talks to the lingo.dev localization engine. Texts are sent as
// an object keyed by their index so order survives the round trip.
type LingoBackend struct {
	url    string
	apiKey string
	client *http.Client
}

func NewLingoBackend(url, apiKey string, timeout time.Duration) *LingoBackend {
	if url == "" {
		url = DefaultLingoURL
	}
	return &LingoBackend{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type lingoLocale struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type lingoRequest struct {
	Params struct {
		Fast bool `json:"fast"`
	} `json:"params"`
	Locale lingoLocale       `json:"locale"`
	Data   map[string]string `json:"data"`
}

type lingoResponse struct {
	Data  map[string]string `json:"data"`
	Error string            `json:"error,omitempty"`
}

func (b *LingoBackend) Translate(ctx context.Context, texts []string, sourceLang, targetLang string) ([]string, error) {
	if b.apiKey == "" {
		return nil, fmt.Errorf("lingo: missing API key")
	}

	req := lingoRequest{
		Locale: lingoLocale{Source: sourceLang, Target: targetLang},
		Data:   make(map[string]string, len(texts)),
	}
	for i, t := range texts {
		req.Data[strconv.Itoa(i)] = t
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("lingo: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("lingo: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lingo: status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}

	var out lingoResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("lingo: decode response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("lingo: %s", out.Error)
	}

	translated := make([]string, len(texts))
	for i := range texts {
		v, ok := out.Data[strconv.Itoa(i)]
		if !ok {
			return nil, fmt.Errorf("lingo: missing unit %d for %s", i, targetLang)
		}
		translated[i] = v
	}
	return translated, nil
}
