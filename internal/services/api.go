// API service for making HTTP requests to the practx server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/practice"
	"github.com/desertthunder/practx/internal/shared"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://127.0.0.1:8000"

// APIService provides methods for making requests to the practx HTTP API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

var _ practice.Store = (*APIService)(nil)

// NewAPIService creates a new API service instance.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
	}
}

// NewAPIServiceFromConfig creates an API service with the configured base URL and request timeout.
func NewAPIServiceFromConfig(cfg shared.ClientConfig) *APIService {
	return NewAPIService(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout()})
}

// BaseURL returns the server address requests are sent to.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the response has a 2xx status.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// Patch performs a PATCH request with the given JSON data and returns the raw response.
func (a *APIService) Patch(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPatch, path, data)
}

// Delete performs a DELETE request to the specified path and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, nil)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	fullURL := a.baseURL + path

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}

	var jsonData any
	if err := json.Unmarshal(respBody, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// ListSongs returns summaries of every stored song.
func (a *APIService) ListSongs(ctx context.Context) ([]models.SongSummary, error) {
	var songs []models.SongSummary
	if err := a.getJSON(ctx, "/api/songs", &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// GetSong returns the full song, including its exercises.
func (a *APIService) GetSong(ctx context.Context, songID string) (*models.Song, error) {
	var song models.Song
	if err := a.getJSON(ctx, songPath(songID), &song); err != nil {
		return nil, err
	}
	return &song, nil
}

// SaveSong creates or replaces a song. Practice totals of existing exercises are kept by the server.
func (a *APIService) SaveSong(ctx context.Context, song *models.Song) (*models.Song, error) {
	data, err := json.Marshal(song)
	if err != nil {
		return nil, fmt.Errorf("failed to encode song: %w", err)
	}

	resp, err := a.Post(ctx, "/api/songs", data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var saved models.Song
	if err := json.Unmarshal(resp.Body, &saved); err != nil {
		return nil, fmt.Errorf("failed to decode song: %w", err)
	}
	return &saved, nil
}

// DeleteSong removes a song with its exercises and logs.
func (a *APIService) DeleteSong(ctx context.Context, songID string) error {
	resp, err := a.Delete(ctx, songPath(songID))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return checkResponse(resp)
}

// PatchExercise overwrites the fields present in patch on the exercise record.
func (a *APIService) PatchExercise(ctx context.Context, songID, exerciseID string, patch models.ExercisePatch) error {
	return a.patchJSON(ctx, songPath(songID)+"/exercises/"+url.PathEscape(exerciseID), patch)
}

// ToggleTransition tracks or untracks the transition between two exercises, creating it when first tracked.
//
// The returned exercise is nil when untracking a transition that does not exist.
func (a *APIService) ToggleTransition(ctx context.Context, songID, exerciseID1, exerciseID2 string, track bool) (*models.Exercise, error) {
	data, err := json.Marshal(map[string]any{
		"exerciseId1": exerciseID1,
		"exerciseId2": exerciseID2,
		"track":       track,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode transition: %w", err)
	}

	resp, err := a.Post(ctx, songPath(songID)+"/transitions", data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if err := checkResponse(resp); err != nil {
		return nil, err
	}

	var body struct {
		Exercise *models.Exercise `json:"exercise"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("failed to decode transition: %w", err)
	}
	return body.Exercise, nil
}

// PatchDailyLog adds the seconds and reps of delta to the exercise's entry for delta.Date.
func (a *APIService) PatchDailyLog(ctx context.Context, songID string, delta models.DailyLogDelta) error {
	return a.patchJSON(ctx, songPath(songID)+"/daily-log", delta)
}

// GetDailyLog returns the song's daily logs, optionally limited to the inclusive range [from, to].
// Empty bounds are open.
func (a *APIService) GetDailyLog(ctx context.Context, songID, from, to string) ([]models.DailyLog, error) {
	path := songPath(songID) + "/daily-log"

	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var logs []models.DailyLog
	if err := a.getJSON(ctx, path, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetStageLog returns the song's stage changes in chronological order.
func (a *APIService) GetStageLog(ctx context.Context, songID string) ([]models.StageLogEntry, error) {
	var entries []models.StageLogEntry
	if err := a.getJSON(ctx, songPath(songID)+"/stage-log", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Health reports whether the server answers its health check.
func (a *APIService) Health(ctx context.Context) error {
	resp, err := a.Get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}
	return nil
}

func (a *APIService) getJSON(ctx context.Context, path string, v any) error {
	resp, err := a.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	if err := checkResponse(resp); err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (a *APIService) patchJSON(ctx context.Context, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := a.Patch(ctx, path, data)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return checkResponse(resp)
}

// checkResponse maps non-2xx responses to errors, using the server's error message when present.
func checkResponse(resp *APIResponse) error {
	if resp.OK() {
		return nil
	}

	msg := string(bytes.TrimSpace(resp.Body))
	if m, ok := resp.JSONData.(map[string]any); ok {
		if e, ok := m["error"].(string); ok {
			msg = e
		}
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", shared.ErrNotFound, msg)
	}
	return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, msg)
}

func songPath(songID string) string {
	return "/api/songs/" + url.PathEscape(songID)
}
