package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GiacomoIaco/discount-fence-hub-sub011/internal/repository"
	syncengine "github.com/GiacomoIaco/discount-fence-hub-sub011/internal/sync"
)

// SyncHandler exposes the daemon's operational surface: on-demand run
// trigger, last-run status, and the derived opportunity rows.
type SyncHandler struct {
	Orchestrator *syncengine.Orchestrator
	Gate         *syncengine.Gate
	Repo         repository.Repository
	Logger       *zap.Logger
	AccountID    string
}

func (h *SyncHandler) Register(r *gin.Engine) {
	group := r.Group("/api/sync")
	group.POST("/run", h.run)
	group.GET("/status", h.status)
	r.GET("/api/opportunities", h.listOpportunities)
}

func (h *SyncHandler) run(c *gin.Context) {
	if h.Orchestrator == nil {
		Error(c, http.StatusInternalServerError, "sync unavailable", nil)
		return
	}
	if h.Gate != nil && !h.Gate.TryAcquire() {
		Error(c, http.StatusConflict, "a sync run is already in progress", nil)
		return
	}
	if h.Gate != nil {
		defer h.Gate.Release()
	}

	result, err := h.Orchestrator.Run(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("on-demand sync failed", zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), map[string]any{
			"status": result.Status,
			"pages":  result.Pages,
		})
		return
	}
	Ok(c, result, nil)
}

func (h *SyncHandler) status(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	run, err := h.Repo.GetSyncRun(c.Request.Context(), h.AccountID)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	if run == nil {
		Error(c, http.StatusNotFound, "no sync has run yet", nil)
		return
	}
	Ok(c, run, nil)
}

func (h *SyncHandler) listOpportunities(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "store unavailable", nil)
		return
	}
	params := repository.ListOpportunitiesParams{
		Limit:  intQuery(c, "limit", 200),
		Offset: intQuery(c, "offset", 0),
	}
	if outcome := strings.TrimSpace(c.Query("outcome")); outcome != "" {
		params.Outcome = &outcome
	}
	items, err := h.Repo.ListOpportunities(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	Ok(c, items, map[string]any{"count": len(items)})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
