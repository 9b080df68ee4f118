package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/samlafell/mlb-gameid/internal/api/respond"
	"github.com/samlafell/mlb-gameid/internal/cache"
	"github.com/samlafell/mlb-gameid/internal/compat"
	"github.com/samlafell/mlb-gameid/internal/game"
)

// GetCompatGame returns the legacy wide mapping row for one game.
// @Summary Legacy wide mapping row
// @Description One row per game with one external-id column per source, as the pre-unification consumers expect.
// @Tags compat
// @Produce json
// @Param id path string true "Canonical game id"
// @Success 200 {object} compat.WideRow
// @Failure 404 {object} respond.ErrorResponse
// @Router /api/v1/compat/games/{id} [get]
func (h *Handler) GetCompatGame(w http.ResponseWriter, r *http.Request) {
	id, ok := parseGameID(w, r)
	if !ok {
		return
	}
	key := "compat/games/" + id.String()
	if data, etag, hit := h.cache.Get(key); hit {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLCompat, true)
		return
	}

	row, err := compat.WideByID(r.Context(), h.pool, id)
	if err != nil {
		if errors.Is(err, game.ErrNotFound) {
			respond.WriteError(w, http.StatusNotFound, respond.CodeGameNotFound, "No live canonical game with this id")
			return
		}
		h.logger.Error("Compat read failed", "canonical_id", id, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeReadFailed, "Compat read failed")
		return
	}

	data, err := json.Marshal(row)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeEncodeFailed, "Response encoding failed")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLCompat)
	respond.WriteJSON(w, data, etag, cache.TTLCompat, false)
}

// GetCompatByDate lists legacy wide rows for a game date.
// @Summary Legacy wide mapping rows for a date
// @Tags compat
// @Produce json
// @Param date query string true "Game date (YYYY-MM-DD)"
// @Success 200 {array} compat.WideRow
// @Failure 400 {object} respond.ErrorResponse
// @Router /api/v1/compat/games [get]
func (h *Handler) GetCompatByDate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
		return
	}

	key := "compat/dates/" + raw
	if data, etag, hit := h.cache.Get(key); hit {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLCompat, true)
		return
	}

	rows, err := compat.WideByDate(r.Context(), h.pool, date)
	if err != nil {
		h.logger.Error("Compat date read failed", "date", raw, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeReadFailed, "Compat read failed")
		return
	}
	if rows == nil {
		rows = []*compat.WideRow{}
	}

	data, err := json.Marshal(rows)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, respond.CodeEncodeFailed, "Response encoding failed")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLCompat)
	respond.WriteJSON(w, data, etag, cache.TTLCompat, false)
}
