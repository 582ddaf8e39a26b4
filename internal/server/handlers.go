package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/practx/internal/models"
	"github.com/desertthunder/practx/internal/shared"
)

const maxBodyBytes = 1 << 20

// SongsHandler serves the /api/songs resource tree.
type SongsHandler struct {
	stores Stores
	logger *log.Logger
	mux    *http.ServeMux
	routes []string
}

// NewSongsHandler creates a [Handler] for songs, exercises and their logs.
func NewSongsHandler(stores Stores, logger *log.Logger) *SongsHandler {
	h := &SongsHandler{stores: stores, logger: logger, mux: http.NewServeMux()}

	h.route("GET /api/songs", h.listSongs)
	h.route("POST /api/songs", h.saveSong)
	h.route("GET /api/songs/{songId}", h.getSong)
	h.route("DELETE /api/songs/{songId}", h.deleteSong)
	h.route("PATCH /api/songs/{songId}/exercises/{exerciseId}", h.patchExercise)
	h.route("POST /api/songs/{songId}/transitions", h.toggleTransition)
	h.route("GET /api/songs/{songId}/daily-log", h.getDailyLog)
	h.route("PATCH /api/songs/{songId}/daily-log", h.patchDailyLog)
	h.route("GET /api/songs/{songId}/stage-log", h.getStageLog)

	return h
}

func (h *SongsHandler) route(pattern string, fn http.HandlerFunc) {
	h.mux.HandleFunc(pattern, fn)
	h.routes = append(h.routes, pattern)
}

// Routes returns the HTTP routes this handler serves.
func (h *SongsHandler) Routes() []string {
	return h.routes
}

// ServeHTTP dispatches to the matching route.
func (h *SongsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *SongsHandler) listSongs(w http.ResponseWriter, r *http.Request) {
	songs, err := h.stores.Songs.List()
	if err != nil {
		h.fail(w, r, err, "Failed to list songs")
		return
	}

	summaries := make([]models.SongSummary, 0, len(songs))
	for _, song := range songs {
		summaries = append(summaries, song.ToSummary())
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *SongsHandler) saveSong(w http.ResponseWriter, r *http.Request) {
	var song models.Song
	if err := decodeBody(w, r, &song); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(song.ID) == "" {
		song.ID = shared.GenerateID()
	}
	if strings.TrimSpace(song.Title) == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields (title)")
		return
	}

	if err := h.stores.Songs.Save(&song); err != nil {
		h.fail(w, r, err, "Failed to save song")
		return
	}

	writeJSON(w, http.StatusOK, song)
}

func (h *SongsHandler) getSong(w http.ResponseWriter, r *http.Request) {
	song, err := h.stores.Songs.Get(r.PathValue("songId"))
	if err != nil {
		h.fail(w, r, err, "Failed to load song")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *SongsHandler) deleteSong(w http.ResponseWriter, r *http.Request) {
	if err := h.stores.Songs.Delete(r.PathValue("songId")); err != nil {
		h.fail(w, r, err, "Failed to delete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *SongsHandler) patchExercise(w http.ResponseWriter, r *http.Request) {
	var patch models.ExercisePatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ex, err := h.stores.Songs.PatchExercise(r.PathValue("songId"), r.PathValue("exerciseId"), patch)
	if err != nil {
		h.fail(w, r, err, "Failed to save")
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// TransitionRequest is the body of POST /api/songs/{songId}/transitions.
type TransitionRequest struct {
	ExerciseID1 string `json:"exerciseId1"`
	ExerciseID2 string `json:"exerciseId2"`
	Track       bool   `json:"track"`
}

func (h *SongsHandler) toggleTransition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ex, err := h.stores.Songs.ToggleTransition(r.PathValue("songId"), req.ExerciseID1, req.ExerciseID2, req.Track)
	if err != nil {
		h.fail(w, r, err, "Failed to save")
		return
	}

	resp := map[string]any{"success": true}
	if ex != nil {
		resp["exercise"] = ex
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SongsHandler) getDailyLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logs, err := h.stores.DailyLogs.GetRange(r.PathValue("songId"), q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, err, "Failed to load daily log")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *SongsHandler) patchDailyLog(w http.ResponseWriter, r *http.Request) {
	var delta models.DailyLogDelta
	if err := decodeBody(w, r, &delta); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.stores.DailyLogs.Upsert(r.PathValue("songId"), delta); err != nil {
		h.fail(w, r, err, "Failed to save daily log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *SongsHandler) getStageLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.stores.StageLogs.GetAll(r.PathValue("songId"))
	if err != nil {
		h.fail(w, r, err, "Failed to load stage log")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// fail maps store errors to status codes: not found is 404, invalid input 400, anything else 500.
func (h *SongsHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, shared.ErrSongNotFound):
		writeError(w, http.StatusNotFound, "Song not found")
	case errors.Is(err, shared.ErrExerciseNotFound):
		writeError(w, http.StatusNotFound, "Exercise not found")
	case errors.Is(err, shared.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), shared.ErrInvalidInput.Error()+": "))
	default:
		h.logger.Error(msg, "path", r.URL.Path, "error", err, "request_id", RequestIDFrom(r.Context()))
		writeError(w, http.StatusInternalServerError, msg)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
