package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"dcia/internal/errors"
	"dcia/internal/models"
)

// ErrQA flags a failed question-answering request.
var ErrQA = errors.NewSentinel("question answering request failed")

// Client talks to the semantic question-answering collaborator over
// HTTP+JSON.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		// Answer generation goes through an LLM, so allow a generous timeout.
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger.With("source", "qa.Client"),
	}
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer  string `json:"answer"`
	Sources []struct {
		Name           string  `json:"name"`
		Type           string  `json:"type"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"sources"`
}

// Ask sends a free-text question and returns the answer with its ranked
// source citations in collaborator order.
func (c *Client) Ask(ctx context.Context, question string) (models.Answer, error) {
	body, err := json.Marshal(askRequest{Question: question})
	if err != nil {
		return models.Answer{}, errors.Wrap(ErrQA, "marshal question", errors.SlogError(err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return models.Answer{}, errors.Wrap(ErrQA, "create request", errors.SlogError(err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Answer{}, errors.Wrap(ErrQA, "do request", errors.SlogError(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return models.Answer{}, errors.Wrap(ErrQA, "unexpected status", slog.Int("status", resp.StatusCode))
	}

	var decoded askResponse
	if err = json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return models.Answer{}, errors.Wrap(ErrQA, "decode response", errors.SlogError(err))
	}

	answer := models.Answer{Answer: decoded.Answer}
	for _, source := range decoded.Sources {
		answer.Sources = append(answer.Sources, models.Citation{
			Name:           source.Name,
			SourceKind:     source.Type,
			RelevanceScore: source.RelevanceScore,
		})
	}
	return answer, nil
}
