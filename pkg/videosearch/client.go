package videosearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/assesshub/proctor-engine/pkg/config"
)

// Hit is one untrusted time-ranged match returned by the search backend.
type Hit struct {
	StartS     float64 `json:"start_s"`
	EndS       float64 `json:"end_s"`
	Confidence float64 `json:"confidence"`
}

// VideoMetadata is the subset of video metadata the engine needs.
type VideoMetadata struct {
	VideoID   string  `json:"video_id"`
	DurationS float64 `json:"duration_s"`
}

// Searcher is the collaborator contract consumed by the analysis core:
// given a video identifier and a natural-language query, return time-ranged
// matches with confidence scores. Fallible, latency-bounded but not
// guaranteed.
type Searcher interface {
	Search(ctx context.Context, videoID, queryText string) ([]Hit, error)
	Metadata(ctx context.Context, videoID string) (*VideoMetadata, error)
}

// Client is a minimal HTTP client for the video semantic search service.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a video search client using the provided config.
// If cfg is nil, falls back to environment variables.
func NewClient(cfg *config.VideoSearchConfig) *Client {
	var baseURL, apiKey string
	timeout := 30 * time.Second
	if cfg != nil {
		baseURL = cfg.BaseURL
		apiKey = cfg.APIKey
		if cfg.RequestTimeout > 0 {
			timeout = cfg.RequestTimeout
		}
	}
	if baseURL == "" {
		baseURL = os.Getenv("VIDEO_SEARCH_BASE_URL")
	}
	if apiKey == "" {
		apiKey = os.Getenv("VIDEO_SEARCH_API_KEY")
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// searchRequest is the payload for POST /v1/search
type searchRequest struct {
	VideoID string `json:"video_id"`
	Query   string `json:"query"`
}

// searchResponse is the minimal response
type searchResponse struct {
	Matches []Hit `json:"matches"`
}

// Search issues one semantic query against the video and returns the raw
// matches. The caller is responsible for confidence and duration filtering.
func (c *Client) Search(ctx context.Context, videoID, queryText string) ([]Hit, error) {
	payload := searchRequest{VideoID: videoID, Query: queryText}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/search", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("video search returned status %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	return sr.Matches, nil
}

// Metadata fetches the duration/metadata record of an indexed video.
func (c *Client) Metadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/videos/"+videoID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("video %s not indexed", videoID)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("video search returned status %d", resp.StatusCode)
	}

	var meta VideoMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
