package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"echolog/api/internal/config"
)

// Task states reported by the transcription vendor.
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
)

type Segment struct {
	Index   int
	StartMS int
	EndMS   int
	Text    string
}

type TaskStatus struct {
	TaskID  string
	Status  string
	Message string
}

// Client is the transcription collaborator: submit a job for audio URLs,
// poll its status, or block until it produces timed segments.
type Client interface {
	Submit(ctx context.Context, fileURLs []string) (string, error)
	Fetch(ctx context.Context, taskID string) (TaskStatus, error)
	Wait(ctx context.Context, taskID string) ([]Segment, error)
}

// HTTPClient talks to a DashScope-style async transcription API.
type HTTPClient struct {
	cfg  config.ASRConfig
	http *http.Client
}

func NewHTTPClient(cfg config.ASRConfig) *HTTPClient {
	return &HTTPClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

type submitRequest struct {
	Model string `json:"model"`
	Input struct {
		FileURLs []string `json:"file_urls"`
	} `json:"input"`
}

type taskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Message    string `json:"message"`
		Results    []struct {
			TranscriptionURL string `json:"transcription_url"`
		} `json:"results"`
	} `json:"output"`
}

func (c *HTTPClient) Submit(ctx context.Context, fileURLs []string) (string, error) {
	payload := submitRequest{Model: c.cfg.Model}
	payload.Input.FileURLs = fileURLs

	var resp taskResponse
	if err := c.do(ctx, http.MethodPost, c.cfg.Endpoint+"/services/audio/asr/transcription", payload, &resp); err != nil {
		return "", fmt.Errorf("submit transcription: %w", err)
	}
	if resp.Output.TaskID == "" {
		return "", fmt.Errorf("submit transcription: no task id in response")
	}
	return resp.Output.TaskID, nil
}

func (c *HTTPClient) Fetch(ctx context.Context, taskID string) (TaskStatus, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodGet, c.cfg.Endpoint+"/tasks/"+taskID, nil, &resp); err != nil {
		return TaskStatus{}, fmt.Errorf("fetch task: %w", err)
	}
	return TaskStatus{
		TaskID:  taskID,
		Status:  resp.Output.TaskStatus,
		Message: resp.Output.Message,
	}, nil
}

// Wait polls the task until it settles, then downloads and flattens the
// transcript. The deadline comes from cfg.MaxWait unless ctx ends earlier.
func (c *HTTPClient) Wait(ctx context.Context, taskID string) ([]Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MaxWait)
	defer cancel()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		var resp taskResponse
		if err := c.do(ctx, http.MethodGet, c.cfg.Endpoint+"/tasks/"+taskID, nil, &resp); err != nil {
			return nil, fmt.Errorf("poll task: %w", err)
		}

		switch resp.Output.TaskStatus {
		case StatusSucceeded:
			return c.collectSegments(ctx, resp)
		case StatusFailed:
			return nil, fmt.Errorf("transcription task %s failed: %s", taskID, resp.Output.Message)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transcription task %s: %w", taskID, ctx.Err())
		case <-ticker.C:
		}
	}
}

type transcriptDetail struct {
	Transcripts []struct {
		Sentences []sentence `json:"sentences"`
	} `json:"transcripts"`
	Sentences []sentence `json:"sentences"`
}

type sentence struct {
	BeginTime int    `json:"begin_time"`
	EndTime   int    `json:"end_time"`
	Text      string `json:"text"`
}

func (c *HTTPClient) collectSegments(ctx context.Context, resp taskResponse) ([]Segment, error) {
	if len(resp.Output.Results) == 0 || resp.Output.Results[0].TranscriptionURL == "" {
		return nil, fmt.Errorf("transcription result missing url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resp.Output.Results[0].TranscriptionURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download transcript: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download transcript: status %d", res.StatusCode)
	}

	var detail transcriptDetail
	if err := json.NewDecoder(res.Body).Decode(&detail); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}

	sentences := detail.Sentences
	for _, t := range detail.Transcripts {
		sentences = append(sentences, t.Sentences...)
	}

	segments := make([]Segment, 0, len(sentences))
	for i, s := range sentences {
		segments = append(segments, Segment{
			Index:   i,
			StartMS: s.BeginTime,
			EndMS:   s.EndTime,
			Text:    s.Text,
		})
	}
	return segments, nil
}

func (c *HTTPClient) do(ctx context.Context, method string, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if method == http.MethodPost {
		req.Header.Set("X-DashScope-Async", "enable")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
