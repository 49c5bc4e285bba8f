// Asana REST API implementation of the task store used by the sync engine
//
// Response envelopes follow https://developers.asana.com/reference/rest-api-reference
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/prisync/internal/models"
	"github.com/desertthunder/prisync/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultAsanaBaseURL      = "https://app.asana.com/api/1.0"
	defaultRequestsPerMinute = 150
	subtaskPageSize          = 100
	maxErrorBody             = 4096
)

// subtaskFields are requested when listing subtasks; only identity is needed for fan-out.
var subtaskFields = []string{"name"}

type asanaErrorDetail struct {
	Message string `json:"message"`
	Help    string `json:"help,omitempty"`
}

type asanaErrorResponse struct {
	Errors []asanaErrorDetail `json:"errors"`
}

type nextPage struct {
	Offset string `json:"offset"`
	Path   string `json:"path"`
	URI    string `json:"uri"`
}

// envelope is the {"data": ...} wrapper around every Asana response.
type envelope[T any] struct {
	Data     T         `json:"data"`
	NextPage *nextPage `json:"next_page,omitempty"`
}

// APIError is returned for non-success responses.
//
// It unwraps to [shared.ErrNotFound] for 404 and [shared.ErrServiceError] otherwise.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: asana API status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: asana API status %d: %s", e.Op, e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return shared.ErrNotFound
	}
	return shared.ErrServiceError
}

// newAPIError builds an [APIError], preferring Asana's error messages over the raw body.
func newAPIError(op string, status int, body []byte) *APIError {
	var parsed asanaErrorResponse
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		message = strings.Join(messages, "; ")
	}
	return &APIError{Op: op, Status: status, Message: message}
}

// AsanaOpts configures [NewAsanaService].
type AsanaOpts struct {
	AccessToken string
	BaseURL     string
	// RequestsPerMinute of 0 uses the Asana default, a negative value disables limiting.
	RequestsPerMinute int
	// HTTPClient supplies the base transport; the bearer token is layered on top of it.
	HTTPClient *http.Client
}

// AsanaService talks to the Asana REST API with a personal access token.
//
// Every request waits on a shared token bucket so concurrent deliveries stay inside the API budget.
type AsanaService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewAsanaService creates a client authenticated with opts.AccessToken.
func NewAsanaService(opts AsanaOpts) (*AsanaService, error) {
	if strings.TrimSpace(opts.AccessToken) == "" {
		return nil, fmt.Errorf("%w: asana access token is empty", shared.ErrMissingCredentials)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultAsanaBaseURL
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken, TokenType: "Bearer"})

	return &AsanaService{
		baseURL:    baseURL,
		httpClient: oauth2.NewClient(ctx, source),
		limiter:    newLimiter(opts.RequestsPerMinute),
	}, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute < 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if perMinute == 0 {
		perMinute = defaultRequestsPerMinute
	}
	burst := max(perMinute/10, 1)
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

// Name returns the name of the task store.
func (a *AsanaService) Name() string {
	return "Asana"
}

// doRequest performs an authenticated request and decodes the "data" envelope into result.
func (a *AsanaService) doRequest(ctx context.Context, op, method, endpoint string, body, result any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %w", op, err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, shared.ErrServiceError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(op, resp.StatusCode, data)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%s: %w: failed to decode response: %w", op, shared.ErrServiceError, err)
		}
	}

	return nil
}

func taskPath(gid string) string {
	return "/tasks/" + url.PathEscape(gid)
}

// GetTask fetches a task. optFields restricts the returned properties (Asana opt_fields).
func (a *AsanaService) GetTask(ctx context.Context, gid string, optFields ...string) (*models.Task, error) {
	if gid == "" {
		return nil, fmt.Errorf("get task: %w: empty gid", shared.ErrInvalidArgument)
	}

	endpoint := taskPath(gid)
	if len(optFields) > 0 {
		endpoint += "?" + url.Values{"opt_fields": {strings.Join(optFields, ",")}}.Encode()
	}

	var response envelope[models.Task]
	if err := a.doRequest(ctx, "get task "+gid, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response.Data, nil
}

// GetSubtasks lists every subtask of parentGID, following pagination.
func (a *AsanaService) GetSubtasks(ctx context.Context, parentGID string) ([]models.Task, error) {
	if parentGID == "" {
		return nil, fmt.Errorf("get subtasks: %w: empty parent gid", shared.ErrInvalidArgument)
	}

	var all []models.Task
	offset := ""

	for {
		query := url.Values{
			"limit":      {fmt.Sprint(subtaskPageSize)},
			"opt_fields": {strings.Join(subtaskFields, ",")},
		}
		if offset != "" {
			query.Set("offset", offset)
		}

		var response envelope[[]models.Task]
		endpoint := taskPath(parentGID) + "/subtasks?" + query.Encode()
		if err := a.doRequest(ctx, "get subtasks of "+parentGID, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		all = append(all, response.Data...)

		if response.NextPage == nil || response.NextPage.Offset == "" {
			break
		}
		offset = response.NextPage.Offset
	}

	return all, nil
}

// UpdateTaskCustomField sets an enum custom field on a task.
func (a *AsanaService) UpdateTaskCustomField(ctx context.Context, taskGID, fieldGID, enumValueGID string) error {
	if taskGID == "" || fieldGID == "" {
		return fmt.Errorf("update task: %w: task and field gid are required", shared.ErrInvalidArgument)
	}

	body := map[string]any{
		"data": map[string]any{
			"custom_fields": map[string]string{fieldGID: enumValueGID},
		},
	}

	return a.doRequest(ctx, "update task "+taskGID, http.MethodPut, taskPath(taskGID), body, nil)
}
