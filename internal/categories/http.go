package categories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPSuggester calls an external categorization suggestion service over
// HTTP: POST {"merchants": [...]} returns {"suggestions": [...]} aligned
// positionally with the input.
type HTTPSuggester struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPSuggester creates a client for the suggestion service at baseURL.
func NewHTTPSuggester(baseURL string) *HTTPSuggester {
	return &HTTPSuggester{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type suggestRequest struct {
	Merchants []string `json:"merchants"`
}

type suggestResponse struct {
	Suggestions []struct {
		CategoryID string  `json:"categoryId"`
		Confidence float64 `json:"confidence"`
	} `json:"suggestions"`
}

// Suggest implements Suggester.
func (c *HTTPSuggester) Suggest(ctx context.Context, merchants []string) ([]Suggestion, error) {
	body, err := json.Marshal(suggestRequest{Merchants: merchants})
	if err != nil {
		return nil, fmt.Errorf("encoding suggestion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/suggestions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building suggestion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling suggestion service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion service returned %s", resp.Status)
	}

	var decoded suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding suggestion response: %w", err)
	}

	suggestions := make([]Suggestion, len(decoded.Suggestions))
	for i, sg := range decoded.Suggestions {
		suggestions[i] = Suggestion{CategoryID: sg.CategoryID, Confidence: sg.Confidence}
	}
	return suggestions, nil
}
