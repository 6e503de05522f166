package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prismworks/prism-api/internal/config"
	"github.com/prismworks/prism-api/internal/domain"
	"github.com/prismworks/prism-api/internal/task"
)

const (
	// synthesisPath is the async image-synthesis endpoint, relative to the
	// configured base URL.
	synthesisPath = "/services/aigc/text2image/image-synthesis"

	// tasksPath is the job status endpoint, relative to the base URL.
	tasksPath = "/tasks/"

	// asyncHeader must be set on job creation or the API runs synchronously
	// and times out for anything non-trivial.
	asyncHeader = "X-DashScope-Async"

	// defaultTimeout bounds each individual HTTP exchange. Artifact
	// downloads are the largest transfer and fit comfortably.
	defaultTimeout = 60 * time.Second

	// maxErrorBodyBytes caps how much of an error response body is carried
	// into the returned error.
	maxErrorBodyBytes = 512
)

// DashScopeClient talks to the DashScope text-to-image API. It implements
// the orchestrator's ProviderClient contract.
type DashScopeClient struct {
	// httpClient is used for all requests, including artifact downloads
	httpClient *http.Client

	// logger is used for structured logging
	logger *slog.Logger

	// baseURL is the API root, without a trailing slash
	baseURL string

	// apiKey is sent as a bearer token on API calls (not on downloads)
	apiKey string

	// model is the synthesis model requested for every job
	model string
}

// Ensure DashScopeClient implements the provider contract
var _ task.ProviderClient = (*DashScopeClient)(nil)

// NewDashScopeClient creates a client from the provider configuration.
//
// Returns ErrInvalidConfig if the API key, base URL, or model name is empty.
func NewDashScopeClient(cfg config.ProviderConfig, logger *slog.Logger) (*DashScopeClient, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL cannot be empty", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	return &DashScopeClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger.With(slog.String("component", "dashscope_client")),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
	}, nil
}

// synthesisRequest is the job creation payload.
type synthesisRequest struct {
	Model      string              `json:"model"`
	Input      synthesisInput      `json:"input"`
	Parameters synthesisParameters `json:"parameters"`
}

type synthesisInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type synthesisParameters struct {
	// Size is "width*height", e.g. "512*512".
	Size         string `json:"size"`
	N            int    `json:"n"`
	PromptExtend bool   `json:"prompt_extend"`
	Watermark    bool   `json:"watermark"`
}

// apiOutput is the shared "output" envelope of creation and status responses.
type apiOutput struct {
	TaskID     string `json:"task_id"`
	TaskStatus string `json:"task_status"`
	Message    string `json:"message"`
	Results    []struct {
		URL string `json:"url"`
	} `json:"results"`
}

type apiResponse struct {
	RequestID string    `json:"request_id"`
	Output    apiOutput `json:"output"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

// CreateJob submits an asynchronous image-synthesis job and returns the
// provider-side task ID.
func (c *DashScopeClient) CreateJob(ctx context.Context, req domain.GenerationRequest) (string, error) {
	payload := synthesisRequest{
		Model: c.model,
		Input: synthesisInput{
			Prompt:         req.Prompt,
			NegativePrompt: req.NegativePrompt,
		},
		Parameters: synthesisParameters{
			Size:         fmt.Sprintf("%d*%d", req.Width, req.Height),
			N:            1,
			PromptExtend: true,
			Watermark:    false,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal synthesis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesisPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build synthesis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set(asyncHeader, "enable")

	var resp apiResponse
	if err := c.do(httpReq, &resp); err != nil {
		return "", err
	}

	if resp.Output.TaskID == "" {
		return "", fmt.Errorf("%w: job creation returned no task ID (code=%q message=%q)",
			ErrUnexpectedResponse, resp.Code, resp.Message)
	}

	c.logger.DebugContext(ctx, "created synthesis job",
		"provider_job_id", resp.Output.TaskID,
		"request_id", resp.RequestID)

	return resp.Output.TaskID, nil
}

// Poll fetches the current status of a provider job and maps it onto the
// orchestrator's coarse status model. PENDING and RUNNING both report as
// running; a succeeded job must carry a downloadable result URL.
func (c *DashScopeClient) Poll(ctx context.Context, jobID string) (task.PollResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tasksPath+jobID, nil)
	if err != nil {
		return task.PollResult{}, fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	var resp apiResponse
	if err := c.do(httpReq, &resp); err != nil {
		return task.PollResult{}, err
	}

	switch resp.Output.TaskStatus {
	case "SUCCEEDED":
		if len(resp.Output.Results) == 0 || resp.Output.Results[0].URL == "" {
			return task.PollResult{}, fmt.Errorf("%w: succeeded job %s has no result URL",
				ErrUnexpectedResponse, jobID)
		}
		return task.PollResult{
			Status:    task.ProviderStatusSucceeded,
			ResultRef: resp.Output.Results[0].URL,
		}, nil

	case "FAILED", "CANCELED":
		message := resp.Output.Message
		if message == "" {
			message = resp.Message
		}
		return task.PollResult{
			Status:  task.ProviderStatusFailed,
			Message: message,
		}, nil

	default:
		// PENDING, RUNNING, and anything unrecognized keep the poll loop
		// going until the policy times out.
		return task.PollResult{Status: task.ProviderStatusRunning}, nil
	}
}

// Download fetches the generated artifact bytes. Result URLs are pre-signed
// by the provider and need no authorization header.
func (c *DashScopeClient) Download(ctx context.Context, resultRef string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, resultRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("artifact download failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: artifact download returned status %d",
			ErrRequestFailed, httpResp.StatusCode)
	}

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact body: %w", err)
	}

	c.logger.DebugContext(ctx, "downloaded artifact", "size_bytes", len(data))

	return data, nil
}

// do executes an API request and decodes the JSON response into out.
// Non-2xx statuses become ErrRequestFailed with a truncated body excerpt.
func (c *DashScopeClient) do(req *http.Request, out *apiResponse) error {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider request error: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%w: status %d: %s",
			ErrRequestFailed, httpResp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}

	return nil
}
