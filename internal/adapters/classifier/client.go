package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"semantic-sensei/internal/domain"
	"semantic-sensei/internal/infra/metrics"
)

// Client — HTTP клиент сервиса классификации терминов.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient создаёт клиента.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type searchRequest struct {
	SearchTerm string `json:"search_term"`
}

type searchResponse struct {
	Result struct {
		Predictions []termPrediction `json:"predictions"`
	} `json:"result"`
	TokenDetails struct {
		PromptTokens     int `json:"prompt_tokens"`
		CandidatesTokens int `json:"candidates_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"token_details"`
}

type termPrediction struct {
	Term        string `json:"term"`
	Uncertain   bool   `json:"uncertain"`
	Predictions []struct {
		Code  string `json:"code"`
		Name  string `json:"name"`
		Score int    `json:"score"`
	} `json:"predictions"`
}

// Classify запрашивает предсказания категорий для термина.
// Не-2xx ответ и нарушение схемы — ошибка вызова, ретраев нет.
func (c *Client) Classify(ctx context.Context, term string) (domain.Classification, error) {
	body, err := json.Marshal(searchRequest{SearchTerm: term})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("classifier", "search", term, start, err)
		return domain.Classification{}, fmt.Errorf("classifier: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveNetworkRequest("classifier", "search", term, start, err)
		return domain.Classification{}, fmt.Errorf("classifier: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = fmt.Errorf("classifier: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		metrics.ObserveNetworkRequest("classifier", "search", term, start, err)
		return domain.Classification{}, err
	}
	metrics.ObserveNetworkRequest("classifier", "search", term, start, nil)

	return parseClassification(term, respBody)
}

// parseClassification валидирует форму ответа и переводит её в домен.
func parseClassification(term string, body []byte) (domain.Classification, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Classification{}, fmt.Errorf("classifier: decode response: %w", err)
	}
	if len(resp.Result.Predictions) == 0 {
		return domain.Classification{}, fmt.Errorf("classifier: empty predictions for %q", term)
	}

	first := resp.Result.Predictions[0]
	out := domain.Classification{
		Term:      first.Term,
		Uncertain: first.Uncertain,
		Usage: domain.TokenUsage{
			PromptTokens:    resp.TokenDetails.PromptTokens,
			CandidateTokens: resp.TokenDetails.CandidatesTokens,
			TotalTokens:     resp.TokenDetails.TotalTokens,
		},
	}
	if out.Term == "" {
		out.Term = term
	}
	for _, p := range first.Predictions {
		if p.Code == "" && p.Name == "" {
			return domain.Classification{}, fmt.Errorf("classifier: prediction without code and name for %q", term)
		}
		out.Predictions = append(out.Predictions, domain.Prediction{
			Code:  p.Code,
			Name:  p.Name,
			Score: p.Score,
		})
	}
	return out, nil
}
