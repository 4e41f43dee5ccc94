package api

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/phantomsec/gibson/internal/index"
	"github.com/phantomsec/gibson/internal/layout"
	"github.com/phantomsec/gibson/internal/manifest"
	"github.com/phantomsec/gibson/internal/project"
	"github.com/phantomsec/gibson/internal/store"
)

type handlers struct {
	layout    layout.Layout
	index     *index.Store
	manifests *manifest.Store
	db        *store.Store
	logger    zerolog.Logger
	startTime time.Time
}

func newHandlers(l layout.Layout, idx *index.Store, manifests *manifest.Store, db *store.Store, logger zerolog.Logger) *handlers {
	return &handlers{
		layout:    l,
		index:     idx,
		manifests: manifests,
		db:        db,
		logger:    logger.With().Str("component", "api_handlers").Logger(),
		startTime: time.Now(),
	}
}

// Liveness handles GET /healthz.
func (h *handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

// projectView is one row of the project listing.
type projectView struct {
	ID           string             `json:"id"`
	Source       string             `json:"source,omitempty"`
	Status       index.Status       `json:"status,omitempty"`
	RiskLevel    manifest.RiskLevel `json:"risk_level"`
	LastAnalyzed *time.Time         `json:"last_analyzed,omitempty"`
	Active       bool               `json:"active"`
}

// ListProjects handles GET /api/projects. Existence comes from the
// directory walk; index entries and manifests enrich each row when
// present.
func (h *handlers) ListProjects(c *fiber.Ctx) error {
	ids, err := h.index.List()
	if err != nil {
		return err
	}
	active, err := h.index.Active()
	if err != nil {
		return err
	}

	views := make([]projectView, 0, len(ids))
	for _, id := range ids {
		view := projectView{ID: id.String(), RiskLevel: manifest.RiskNone, Active: id.String() == active}
		if entry, err := h.index.Get(id); err == nil && entry != nil {
			view.Source = entry.Source
			view.Status = entry.Status
			view.LastAnalyzed = entry.LastAnalyzed
		}
		if m, err := h.manifests.Load(id); err == nil {
			view.RiskLevel = m.Summary.RiskLevel
		}
		views = append(views, view)
	}
	return c.JSON(fiber.Map{"projects": views, "count": len(views)})
}

// identity resolves the path params; when the project directory does not
// exist it writes the 404 response and reports found=false.
func (h *handlers) identity(c *fiber.Ctx) (layout.Identity, bool, error) {
	id := layout.Identity{Namespace: c.Params("namespace"), Name: c.Params("name")}
	if _, err := os.Stat(h.layout.ProjectDir(id)); err != nil {
		return id, false, problemResponse(c, fiber.StatusNotFound,
			"project_not_found", "Not Found",
			"No project "+id.String())
	}
	return id, true, nil
}

// GetProject handles GET /api/projects/:namespace/:name.
func (h *handlers) GetProject(c *fiber.Ctx) error {
	id, found, err := h.identity(c)
	if !found {
		return err
	}

	var meta *project.Metadata
	if m, err := project.Load(h.layout, id); err == nil {
		meta = m
	}
	entry, err := h.index.Get(id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"id":       id.String(),
		"metadata": meta,
		"index":    entry,
	})
}

// GetManifest handles GET /api/projects/:namespace/:name/manifest. The
// response is the manifest document itself, not a wrapper.
func (h *handlers) GetManifest(c *fiber.Ctx) error {
	id, found, err := h.identity(c)
	if !found {
		return err
	}

	m, err := h.manifests.Load(id)
	if err != nil {
		return problemResponse(c, fiber.StatusNotFound,
			"manifest_not_found", "Not Found",
			"Project "+id.String()+" has no analysis manifest")
	}
	return c.JSON(m)
}

// GetScans handles GET /api/projects/:namespace/:name/scans.
func (h *handlers) GetScans(c *fiber.Ctx) error {
	id, found, err := h.identity(c)
	if !found {
		return err
	}
	if h.db == nil {
		return c.JSON(fiber.Map{"scans": []any{}, "count": 0})
	}

	scans, err := h.db.ScanHistory(id.String(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	if scans == nil {
		scans = []*store.Scan{}
	}
	return c.JSON(fiber.Map{"scans": scans, "count": len(scans)})
}

// Stats handles GET /api/stats.
func (h *handlers) Stats(c *fiber.Ctx) error {
	ids, err := h.index.List()
	if err != nil {
		return err
	}

	resp := fiber.Map{"total_projects": len(ids)}
	if h.db != nil {
		if counts, err := h.db.RiskCounts(); err == nil {
			resp["by_risk"] = counts
		}
	}
	return c.JSON(resp)
}
