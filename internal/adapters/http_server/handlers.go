// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"review_sync/internal/app"
	"review_sync/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// business directory names as produced by the business configuration
var slugRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/businesses/{slug}/reviews", h.listReviews)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeJSON answers with v and a weak ETag over its encoding, or 304 when
// the client already holds that version.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode response failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("client went away")
	}
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !slugRe.MatchString(slug) {
		writeProblem(w, http.StatusBadRequest, "Invalid slug", "slug must be lowercase letters, digits, '-' or '_'")
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	page := domain.PageQuery{Limit: limit}
	if src := r.URL.Query().Get("source"); src != "" {
		p, err := domain.ParsePlatform(src)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid source", "source must be google, facebook or trustpilot")
			return
		}
		page.Source = &p
	}

	out, err := h.Q.ListReviews(r.Context(), slug, page)
	if errors.Is(err, domain.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", "business has no stored reviews")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("business", slug).Msg("list reviews failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	writeJSON(w, r, out)
}
