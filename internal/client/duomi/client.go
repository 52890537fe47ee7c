// Package duomi implements the generation collaborators against the Duomi
// image2video API (a Kling proxy).
package duomi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/voxora/maestro/internal/domain"
)

const image2videoPath = "/api/video/kling/v1/videos/image2video"

// Client talks to the Duomi video generation API. It implements
// domain.Submitter and domain.StatusChecker.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

var (
	_ domain.Submitter     = (*Client)(nil)
	_ domain.StatusChecker = (*Client)(nil)
)

// NewClient creates a Duomi API client.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// envelope is the common Duomi response wrapper. Code 0 means accepted.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type submitData struct {
	TaskID string `json:"task_id"`
}

type statusData struct {
	TaskStatus    string `json:"task_status"`
	TaskStatusMsg string `json:"task_status_msg"`
	TaskResult    struct {
		Videos []struct {
			URL string `json:"url"`
		} `json:"videos"`
	} `json:"task_result"`
}

// Submit posts the request payload (the prepared image2video body) and
// returns the remote task id. One call, no retry.
func (c *Client) Submit(ctx context.Context, req domain.JobRequest) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+image2videoPath, bytes.NewReader(req.Payload))
	if err != nil {
		return "", fmt.Errorf("duomi: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	env, err := c.do(httpReq)
	if err != nil {
		return "", err
	}

	var data submitData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", fmt.Errorf("duomi: decode submit data: %w", err)
	}
	if data.TaskID == "" {
		return "", domain.ErrMissingTaskID
	}

	c.logger.Debug("Duomi submission accepted",
		zap.String("task_id", data.TaskID),
		zap.String("label", req.Label),
	)
	return data.TaskID, nil
}

// CheckStatus fetches the current task status. Unrecognized status strings
// map to Unknown rather than failing the check.
func (c *Client) CheckStatus(ctx context.Context, taskID string) (domain.StatusSnapshot, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+image2videoPath+"/"+taskID, nil)
	if err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("duomi: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)

	env, err := c.do(httpReq)
	if err != nil {
		return domain.StatusSnapshot{}, err
	}

	var data statusData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("duomi: decode status data: %w", err)
	}
	return snapshotFrom(data), nil
}

// snapshotFrom maps Duomi's task_status strings onto the orchestrator's
// tagged snapshot. "canceled" is a remote failure, as the scripts treated it.
func snapshotFrom(data statusData) domain.StatusSnapshot {
	switch data.TaskStatus {
	case "submitted":
		return domain.StatusSnapshot{Code: domain.StatusSubmitted}
	case "processing":
		return domain.StatusSnapshot{Code: domain.StatusProcessing}
	case "succeed":
		var url string
		if len(data.TaskResult.Videos) > 0 {
			url = data.TaskResult.Videos[0].URL
		}
		return domain.StatusSnapshot{Code: domain.StatusSucceeded, Payload: url}
	case "failed", "canceled":
		reason := data.TaskStatusMsg
		if reason == "" {
			reason = "task " + data.TaskStatus
		}
		return domain.StatusSnapshot{Code: domain.StatusFailed, Reason: reason}
	default:
		return domain.StatusSnapshot{Code: domain.StatusUnknown}
	}
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duomi: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("duomi: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duomi: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, truncate(body, 256))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("duomi: decode response: %w", err)
	}
	if env.Code != 0 {
		return nil, fmt.Errorf("duomi: api error code %d: %s", env.Code, env.Message)
	}
	return &env, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
