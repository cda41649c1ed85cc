package handlers

import (
	"context"
	"net/http"
	"time"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp string            `json:"timestamp"`
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	services := map[string]string{}
	healthy := true

	if a.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.DB.Ping(ctx); err != nil {
			services["database"] = "down"
			healthy = false
		} else {
			services["database"] = "up"
		}
	} else {
		services["database"] = "disabled"
	}

	resp := healthResponse{
		Status:    "healthy",
		Services:  services,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if !healthy {
		resp.Status = "unhealthy"
		a.json(w, http.StatusServiceUnavailable, resp)
		return
	}
	a.json(w, http.StatusOK, resp)
}
