package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tryon-api/internal/catalog"
	"tryon-api/internal/middleware"
)

// ListFavorites returns the caller's saved results, newest first.
func (a *App) ListFavorites(w http.ResponseWriter, r *http.Request) {
	owner := middleware.ClientKey(r)
	favorites := a.Favorites.List(owner)
	a.json(w, http.StatusOK, map[string]any{
		"data": favorites,
		"meta": listMeta{Total: len(favorites)},
	})
}

type createFavoritePayload struct {
	StyleID   string `json:"styleId"`
	ResultURL string `json:"resultUrl"`
}

// CreateFavorite saves a try-on result for the caller.
func (a *App) CreateFavorite(w http.ResponseWriter, r *http.Request) {
	var payload createFavoritePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.Config.MaxRequestBodyBytes)).Decode(&payload); err != nil {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON payload", "payload")
		return
	}

	payload.StyleID = strings.TrimSpace(payload.StyleID)
	if payload.StyleID == "" {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "styleId is required", "styleId")
		return
	}
	if _, ok := a.Catalog.Get(payload.StyleID, "en"); !ok {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "styleId does not reference a known hairstyle", "styleId")
		return
	}

	payload.ResultURL = strings.TrimSpace(payload.ResultURL)
	if payload.ResultURL == "" {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "resultUrl is required", "resultUrl")
		return
	}
	if result := a.URLValidator.Validate(payload.ResultURL); !result.Valid {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", urlReasonMessage(result.Reason), "resultUrl")
		return
	}

	fav := a.Favorites.Add(middleware.ClientKey(r), payload.StyleID, payload.ResultURL)
	a.json(w, http.StatusCreated, map[string]any{"data": fav})
}

// DeleteFavorite removes one of the caller's saved results.
func (a *App) DeleteFavorite(w http.ResponseWriter, r *http.Request) {
	owner := middleware.ClientKey(r)
	favoriteID := chi.URLParam(r, "favoriteID")

	if err := a.Favorites.Remove(owner, favoriteID); err != nil {
		if errors.Is(err, catalog.ErrFavoriteNotFound) {
			a.error(w, http.StatusNotFound, "FAVORITE_NOT_FOUND", "favorite does not exist")
			return
		}
		a.Logger.Error().Err(err).Msg("delete favorite failed")
		a.error(w, http.StatusInternalServerError, "TRY_ON_ERROR", "Unable to delete favorite")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"data": map[string]string{"id": favoriteID}})
}
