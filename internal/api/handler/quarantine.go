package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/samlafell/mlb-gameid/internal/api/respond"
	"github.com/samlafell/mlb-gameid/internal/quarantine"
)

// GetQuarantine lists pending quarantine rows.
// @Summary List pending quarantined records
// @Tags quarantine
// @Produce json
// @Param limit query int false "Max rows (default 100)"
// @Success 200 {array} quarantine.Row
// @Router /api/v1/quarantine [get]
func (h *Handler) GetQuarantine(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be 1-1000")
			return
		}
		limit = n
	}

	rows, err := quarantine.ListPending(r.Context(), h.pool, limit)
	if err != nil {
		h.logger.Error("Quarantine list failed", "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeReadFailed, "Quarantine list failed")
		return
	}
	if rows == nil {
		rows = []*quarantine.Row{}
	}
	respond.WriteJSONObject(w, http.StatusOK, rows)
}

// quarantineResolveRequest assigns one quarantined record to a candidate.
type quarantineResolveRequest struct {
	ID          int64     `json:"id"`
	CanonicalID uuid.UUID `json:"canonical_id"`
}

// PostQuarantineResolve resolves a quarantined record to one of its
// candidates.
// @Summary Resolve a quarantined record
// @Description Binds the quarantined external id to the chosen candidate game and rescores it.
// @Tags quarantine
// @Accept json
// @Produce json
// @Param request body quarantineResolveRequest true "Resolution"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/quarantine/resolve [post]
func (h *Handler) PostQuarantineResolve(w http.ResponseWriter, r *http.Request) {
	var req quarantineResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidBody, "Request body must be a JSON resolution")
		return
	}

	if err := quarantine.Resolve(r.Context(), h.pool, h.reg, h.params, req.ID, req.CanonicalID, h.logger); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "RESOLVE_FAILED", "Quarantine resolution failed", err.Error())
		return
	}
	h.cache.InvalidatePrefix("games/" + req.CanonicalID.String())
	h.cache.InvalidatePrefix("mappings/" + req.CanonicalID.String())
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"id":           req.ID,
		"canonical_id": req.CanonicalID,
		"status":       "resolved",
	})
}
