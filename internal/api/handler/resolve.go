package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/samlafell/mlb-gameid/internal/api/respond"
	"github.com/samlafell/mlb-gameid/internal/identity"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/source"
)

// PostResolve resolves one source record to a canonical game.
// @Summary Resolve a source record
// @Description Classifies an incoming record as matched, created, or ambiguous. Ambiguous records are quarantined, never guessed.
// @Tags resolve
// @Accept json
// @Produce json
// @Param record body source.Record true "Source record"
// @Success 200 {object} identity.Outcome "matched an existing canonical game"
// @Success 201 {object} identity.Outcome "created a new canonical game"
// @Success 202 {object} identity.Outcome "ambiguous, quarantined for review"
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/resolve [post]
func (h *Handler) PostResolve(w http.ResponseWriter, r *http.Request) {
	var rec source.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidBody, "Request body must be a JSON source record")
		return
	}

	out, err := h.resolver.Resolve(r.Context(), &rec)
	if err != nil {
		if errors.Is(err, source.ErrUnknownSource) {
			respond.WriteErrorDetail(w, http.StatusBadRequest, "UNKNOWN_SOURCE", "Source is not in the closed set", err.Error())
			return
		}
		var ce *mapping.ConflictError
		if errors.As(err, &ce) {
			respond.WriteErrorDetail(w, http.StatusConflict, "MAPPING_CONFLICT", "External id is bound to a different canonical game", err.Error())
			return
		}
		h.logger.Error("Resolution failed", "source", rec.Source, "external_id", rec.ExternalID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "RESOLVE_FAILED", "Resolution failed")
		return
	}

	status := http.StatusOK
	switch out.Kind {
	case identity.KindCreated:
		status = http.StatusCreated
		h.cache.InvalidatePrefix("compat/")
	case identity.KindAmbiguous:
		status = http.StatusAccepted
	}
	respond.WriteJSONObject(w, status, out)
}

// GetResolve answers the read-side lookup for one external id.
// @Summary Look up a canonical id by external id
// @Description Returns the canonical game an external id maps to, following merges to the survivor.
// @Tags resolve
// @Produce json
// @Param source path string true "Source name"
// @Param externalID path string true "External game id"
// @Success 200 {object} game.Game
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/resolve/{source}/{externalID} [get]
func (h *Handler) GetResolve(w http.ResponseWriter, r *http.Request) {
	src, err := source.Parse(chi.URLParam(r, "source"))
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "UNKNOWN_SOURCE", "Source is not in the closed set", err.Error())
		return
	}
	externalID := chi.URLParam(r, "externalID")

	id, err := h.resolver.ResolveByExternalID(r.Context(), src, externalID)
	if err != nil {
		if errors.Is(err, mapping.ErrNotFound) {
			respond.WriteError(w, http.StatusNotFound, "NOT_MAPPED", "No canonical game for this external id")
			return
		}
		h.logger.Error("External id lookup failed", "source", src, "external_id", externalID, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "LOOKUP_FAILED", "Lookup failed")
		return
	}
	h.writeGame(w, r, id, "resolve/"+string(src)+"/"+externalID)
}
