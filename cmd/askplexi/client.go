package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// apiClient is a thin HTTP client for the plexd daemon.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(baseURL string, timeout time.Duration) *apiClient {
	return &apiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type askResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type apiError struct {
	Tag     string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Tag, e.Message)
	}
	return e.Tag
}

func (c *apiClient) ask(ctx context.Context, question, sessionID string, returnSources bool) (askResponse, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"question":       question,
		"session_id":     sessionID,
		"return_sources": returnSources,
	})
	if err != nil {
		return askResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(payload))
	if err != nil {
		return askResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var out askResponse
	if err := c.do(req, &out); err != nil {
		return askResponse{}, err
	}
	return out, nil
}

type sessionView struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Current    bool      `json:"current"`
}

type sessionsResponse struct {
	Sessions       []sessionView `json:"sessions"`
	CurrentSession string        `json:"current_session"`
}

func (c *apiClient) sessions(ctx context.Context) (sessionsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sessions", nil)
	if err != nil {
		return sessionsResponse{}, err
	}
	var out sessionsResponse
	if err := c.do(req, &out); err != nil {
		return sessionsResponse{}, err
	}
	return out, nil
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Message string `json:"message"`
}

func (c *apiClient) health(ctx context.Context) (healthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return healthResponse{}, err
	}
	// Health is reported with a 503 while not ready; the body still parses.
	resp, err := c.http.Do(req)
	if err != nil {
		return healthResponse{}, err
	}
	defer resp.Body.Close()

	var out healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return healthResponse{}, err
	}
	return out, nil
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &apiError{}
		if jsonErr := json.Unmarshal(body, apiErr); jsonErr == nil && apiErr.Tag != "" {
			return apiErr
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.Unmarshal(body, out)
}
