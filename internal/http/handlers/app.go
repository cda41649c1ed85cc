package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"tryon-api/internal/catalog"
	"tryon-api/internal/infra"
	"tryon-api/internal/ratelimit"
	"tryon-api/internal/tryon"
	"tryon-api/internal/urlcheck"
)

// App bundles the dependencies every handler needs.
type App struct {
	Config       *infra.Config
	Logger       infra.Logger
	DB           *pgxpool.Pool
	TryOnLimiter *ratelimit.Limiter
	Tracker      *tryon.Tracker
	Service      *tryon.Service
	URLValidator urlcheck.Validator
	Catalog      *catalog.Catalog
	Favorites    *catalog.Favorites
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: code, Message: message})
}

func (a *App) fieldError(w http.ResponseWriter, status int, code, message, field string) {
	a.json(w, status, errorBody{Error: code, Message: message, Field: field})
}
