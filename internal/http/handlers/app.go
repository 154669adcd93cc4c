package handlers

import (
	"encoding/json"
	"net/http"

	"clipforge/internal/infra"
	"clipforge/internal/middleware"
	"clipforge/internal/orchestrator"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Logger       infra.Logger
	Orchestrator *orchestrator.Orchestrator
}

func NewApp(logger infra.Logger, orc *orchestrator.Orchestrator) *App {
	return &App{Logger: logger, Orchestrator: orc}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    errCode,
			"message": message,
		},
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
