package web

import (
	"net/http"
	"strconv"

	"github.com/dkeller9/capver/internal/config"
	"github.com/dkeller9/capver/internal/engine"
)

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	engine   *engine.Engine
	cfg      *config.Config
	renderer *Renderer
}

// HandleCapsules handles GET /capsules — list all known capsules.
func (h *Handlers) HandleCapsules(w http.ResponseWriter, r *http.Request) {
	capsules, err := h.engine.ListCapsules(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "capsules", CapsulesPageData{
		PageData: PageData{
			Title:   "Capsules",
			Version: h.renderer.version,
			Nav:     "capsules",
		},
		Capsules: capsules,
	})
}

// HandleHistory handles GET /capsules/{id} — a capsule's version log.
func (h *Handlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	capsuleID := r.PathValue("id")
	branch := r.URL.Query().Get("branch")

	versions, err := h.engine.GetHistory(r.Context(), engine.HistoryInput{
		CapsuleID: capsuleID,
		Branch:    branch,
		Limit:     parseIntParam(r, "limit", 50),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	branches, err := h.engine.ListBranches(r.Context(), capsuleID)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "history", HistoryPageData{
		PageData: PageData{
			Title:   "History " + capsuleID,
			Version: h.renderer.version,
			Nav:     "capsules",
		},
		CapsuleID: capsuleID,
		Branch:    branch,
		Branches:  branches,
		Versions:  versions,
	})
}

// HandleVersion handles GET /capsules/{id}/versions/{vid} — version detail.
func (h *Handlers) HandleVersion(w http.ResponseWriter, r *http.Request) {
	capsuleID := r.PathValue("id")
	versionID := r.PathValue("vid")

	v, err := h.engine.GetVersion(r.Context(), capsuleID, versionID)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "version", VersionPageData{
		PageData: PageData{
			Title:   "Version " + shortID(v.ID),
			Version: h.renderer.version,
			Nav:     "capsules",
		},
		CapsuleID:    capsuleID,
		Ver:          v,
		RenderedHTML: renderMarkdown(v.Message),
	})
}

// parseIntParam parses an integer query parameter with a default.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
