package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spec-kit/fault-service/internal/config"
	"github.com/spec-kit/fault-service/internal/domain"
)

// Classification is the priority/category pair produced by the external model.
type Classification struct {
	Priority domain.FaultPriority `json:"priority"`
	Category string               `json:"category"`
}

// Client maps a free-text description to a Classification. Callers must
// treat any error as non-fatal and fall back to defaults; a single attempt
// per fault creation is sufficient.
type Client interface {
	Classify(ctx context.Context, description string) (Classification, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client for the prediction endpoint with a bounded
// per-call timeout.
func NewHTTPClient(cfg config.ClassifierConfig) Client {
	return &httpClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

type predictRequest struct {
	Description string `json:"description"`
}

func (c *httpClient) Classify(ctx context.Context, description string) (Classification, error) {
	body, err := json.Marshal(predictRequest{Description: description})
	if err != nil {
		return Classification{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return Classification{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Classification{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Classification{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var result Classification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Classification{}, err
	}
	if result.Priority == "" || result.Category == "" {
		return Classification{}, fmt.Errorf("classifier returned incomplete result")
	}
	return result, nil
}

// Defaults returns the fallback classification applied when the external
// model is unavailable.
func Defaults() Classification {
	return Classification{
		Priority: domain.FaultPriorityLow,
		Category: domain.CategoryGeneral,
	}
}
