package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"coursescout/internal/checker"
	"coursescout/internal/logger"
	"coursescout/internal/models"
	"coursescout/internal/storage"
)

// RunReporter exposes the latest background run.
type RunReporter interface {
	LastRun() *checker.RunResult
}

// Handlers holds dependencies for the API handlers.
type Handlers struct {
	store storage.Storer
	runs  RunReporter
	log   logger.Logger
}

// NewHandlers creates a new Handlers struct.
func NewHandlers(store storage.Storer, runs RunReporter, log logger.Logger) *Handlers {
	return &Handlers{store: store, runs: runs, log: log}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= max {
		return v
	}
	return def
}

// ListVerdicts handles listing cached verdicts with pagination.
func (h *Handlers) ListVerdicts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseLimit(q.Get("limit"), storage.DefaultPageLimit, storage.MaxPageLimit)

	params := storage.ListVerdictsParams{Limit: limit}
	if s := strings.TrimSpace(q.Get("status")); s != "" {
		status, err := models.ParseStatus(s)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		params.Status = &status
	}
	if token := q.Get("page_token"); token != "" {
		// token is base64 of the last URL on the previous page
		decoded, err := base64.URLEncoding.DecodeString(token)
		if err != nil {
			http.Error(w, "invalid page_token", http.StatusBadRequest)
			return
		}
		params.AfterURL = string(decoded)
	}

	items, err := h.store.ListVerdicts(r.Context(), params)
	if err != nil {
		h.log.Error("list verdicts error", logger.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []models.Verdict{}
	}

	resp := struct {
		Items         []models.Verdict `json:"items"`
		NextPageToken string           `json:"next_page_token"`
	}{
		Items: items,
	}
	if len(items) == limit {
		resp.NextPageToken = base64.URLEncoding.EncodeToString([]byte(items[len(items)-1].URL))
	}

	writeJSON(w, http.StatusOK, resp)
}

// LookupVerdict returns the cached verdict for the url query parameter.
func (h *Handlers) LookupVerdict(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		http.Error(w, "url is required", http.StatusBadRequest)
		return
	}

	v, err := h.store.GetVerdict(r.Context(), url)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "verdict not found", http.StatusNotFound)
			return
		}
		h.log.Error("get verdict error", logger.String("url", url), logger.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// ListPosts handles listing collected posts, newest first.
func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts, err := h.store.ListPosts(r.Context(), storage.ListPostsParams{
		Subreddit: strings.TrimSpace(q.Get("subreddit")),
		Limit:     parseLimit(q.Get("limit"), 50, 500),
	})
	if err != nil {
		h.log.Error("list posts error", logger.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	writeJSON(w, http.StatusOK, struct {
		Items []models.Post `json:"items"`
	}{Items: posts})
}

// GetPost returns a single collected post.
func (h *Handlers) GetPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "post_id")
	post, err := h.store.GetPost(r.Context(), postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "post not found", http.StatusNotFound)
			return
		}
		h.log.Error("get post error", logger.String("post_id", postID), logger.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// LatestRun reports the most recent background pipeline run.
func (h *Handlers) LatestRun(w http.ResponseWriter, r *http.Request) {
	run := h.runs.LastRun()
	if run == nil {
		http.Error(w, "no run completed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Healthz is a simple health check endpoint.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
