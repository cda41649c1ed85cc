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

type listMeta struct {
	Total int `json:"total"`
}

// ListHairstyles returns the gallery resolved for the request locale.
func (a *App) ListHairstyles(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	styles := a.Catalog.List(locale)
	a.json(w, http.StatusOK, map[string]any{
		"data": styles,
		"meta": listMeta{Total: len(styles)},
	})
}

// GetHairstyle returns a single gallery entry.
func (a *App) GetHairstyle(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	styleID := chi.URLParam(r, "styleID")

	style, ok := a.Catalog.Get(styleID, locale)
	if !ok {
		a.error(w, http.StatusNotFound, "HAIRSTYLE_NOT_FOUND", "hairstyle does not exist")
		return
	}
	a.json(w, http.StatusOK, map[string]any{"data": style})
}

type createHairstylePayload struct {
	ID           string            `json:"id"`
	Name         map[string]string `json:"name"`
	Tags         []string          `json:"tags"`
	ThumbnailURL string            `json:"thumbnailUrl"`
}

// CreateHairstyle adds a gallery entry. Intended for admin tooling; entries
// do not survive a restart.
func (a *App) CreateHairstyle(w http.ResponseWriter, r *http.Request) {
	var payload createHairstylePayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.Config.MaxRequestBodyBytes)).Decode(&payload); err != nil {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON payload", "payload")
		return
	}

	payload.ID = strings.TrimSpace(payload.ID)
	if payload.ID == "" {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "id is required", "id")
		return
	}
	if payload.Name["en"] == "" {
		a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", "name.en is required", "name")
		return
	}
	if payload.ThumbnailURL != "" {
		if result := a.URLValidator.Validate(payload.ThumbnailURL); !result.Valid {
			a.fieldError(w, http.StatusBadRequest, "INVALID_REQUEST", urlReasonMessage(result.Reason), "thumbnailUrl")
			return
		}
	}

	style := catalog.Hairstyle{
		ID:           payload.ID,
		Names:        payload.Name,
		Tags:         payload.Tags,
		ThumbnailURL: payload.ThumbnailURL,
	}
	if err := a.Catalog.Add(style); err != nil {
		if errors.Is(err, catalog.ErrStyleExists) {
			a.fieldError(w, http.StatusConflict, "INVALID_REQUEST", "a hairstyle with this id already exists", "id")
			return
		}
		a.Logger.Error().Err(err).Msg("create hairstyle failed")
		a.error(w, http.StatusInternalServerError, "TRY_ON_ERROR", "Unable to create hairstyle")
		return
	}

	view, _ := a.Catalog.Get(style.ID, middleware.LocaleFromContext(r.Context()))
	a.json(w, http.StatusCreated, map[string]any{"data": view})
}
