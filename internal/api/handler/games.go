package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/samlafell/mlb-gameid/internal/api/respond"
	"github.com/samlafell/mlb-gameid/internal/cache"
	"github.com/samlafell/mlb-gameid/internal/game"
	"github.com/samlafell/mlb-gameid/internal/mapping"
	"github.com/samlafell/mlb-gameid/internal/merge"
)

func parseGameID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "Canonical id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// GetGame returns one canonical game.
// @Summary Get a canonical game
// @Tags games
// @Produce json
// @Param id path string true "Canonical game id"
// @Success 200 {object} game.Game
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/games/{id} [get]
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(w, r)
	if !ok {
		return
	}
	h.writeGame(w, r, id, "games/"+id.String())
}

// writeGame serves a game through the cache with ETag revalidation.
func (h *Handler) writeGame(w http.ResponseWriter, r *http.Request, id uuid.UUID, key string) {
	if data, etag, hit := h.cache.Get(key); hit {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLGame, true)
		return
	}

	g, err := game.ByID(r.Context(), h.pool, id)
	if err != nil {
		if errors.Is(err, game.ErrNotFound) {
			respond.WriteError(w, http.StatusNotFound, respond.CodeGameNotFound, "No canonical game with this id")
			return
		}
		h.logger.Error("Game read failed", "canonical_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeReadFailed, "Game read failed")
		return
	}

	data, err := json.Marshal(g)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeEncodeFailed, "Response encoding failed")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLGame)
	if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
		respond.WriteNotModified(w, etag)
		return
	}
	respond.WriteJSON(w, data, etag, cache.TTLGame, false)
}

// GetGameMappings lists the external ids bound to a canonical game.
// @Summary List a game's external id mappings
// @Tags games
// @Produce json
// @Param id path string true "Canonical game id"
// @Success 200 {array} mapping.Entry
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/games/{id}/mappings [get]
func (h *Handler) GetGameMappings(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(w, r)
	if !ok {
		return
	}
	key := "mappings/" + id.String()
	if data, etag, hit := h.cache.Get(key); hit {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLMapping, true)
		return
	}

	entries, err := mapping.ForGame(r.Context(), h.pool, id)
	if err != nil {
		h.logger.Error("Mapping list failed", "canonical_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeReadFailed, "Mapping list failed")
		return
	}
	if entries == nil {
		entries = []*mapping.Entry{}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeEncodeFailed, "Response encoding failed")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLMapping)
	respond.WriteJSON(w, data, etag, cache.TTLMapping, false)
}

// GetGameHistory lists merge audit rows touching a canonical game.
// @Summary Get a game's merge history
// @Tags games
// @Produce json
// @Param id path string true "Canonical game id"
// @Success 200 {array} merge.LogEntry
// @Router /api/v1/games/{id}/history [get]
func (h *Handler) GetGameHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(w, r)
	if !ok {
		return
	}
	entries, err := merge.History(r.Context(), h.pool, id)
	if err != nil {
		h.logger.Error("Merge history read failed", "canonical_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeReadFailed, "Merge history read failed")
		return
	}
	if entries == nil {
		entries = []*merge.LogEntry{}
	}
	respond.WriteJSONObject(w, http.StatusOK, entries)
}

// mergeRequest is the admin merge body.
type mergeRequest struct {
	GameA     uuid.UUID `json:"game_a"`
	GameB     uuid.UUID `json:"game_b"`
	Reason    string    `json:"reason"`
	DecidedBy string    `json:"decided_by"`
}

// PostMerge consolidates two canonical games and rewrites dependent
// references.
// @Summary Merge two canonical games
// @Description Consolidates a duplicate pair: survivor selection, attribute fold, mapping re-point, loser retirement, fact-table rewrite.
// @Tags admin
// @Accept json
// @Produce json
// @Param request body mergeRequest true "Merge request"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/admin/merge [post]
func (h *Handler) PostMerge(w http.ResponseWriter, r *http.Request) {
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteError(w, http.StatusBadRequest, respond.CodeInvalidBody, "Request body must be a JSON merge request")
		return
	}
	if req.Reason == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_REASON", "Merge requests must carry a reason")
		return
	}
	if req.DecidedBy == "" {
		req.DecidedBy = "api"
	}

	mr, err := h.engine.Merge(r.Context(), req.GameA, req.GameB, req.Reason, req.DecidedBy)
	if err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "MERGE_FAILED", "Merge failed", err.Error())
		return
	}

	resp := map[string]interface{}{"merge": mr}
	if !mr.AlreadyMerged {
		report, err := h.rewriter.Run(r.Context(), mr.LosingID, mr.SurvivingID)
		if report != nil {
			resp["rewrite"] = report
		}
		if err != nil {
			// Merge committed but some fact tables still carry the loser's
			// id; the reconciler resumes the rewrite.
			resp["rewrite_error"] = err.Error()
		}
		h.cache.InvalidatePrefix("games/")
		h.cache.InvalidatePrefix("mappings/")
		h.cache.InvalidatePrefix("compat/")
	}
	respond.WriteJSONObject(w, http.StatusOK, resp)
}
