package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"aquarelle/internal/domain"
	"aquarelle/internal/middleware"
	"aquarelle/internal/render"
)

// RenderService is the slice of the render service the handlers need.
type RenderService interface {
	Submit(ctx context.Context, in render.SubmitInput) (render.SubmitResult, error)
	Status(ctx context.Context, jobID, userID string) (*domain.RenderJob, error)
}

// App is the handler container; dependencies are injected once at startup.
type App struct {
	Logger  zerolog.Logger
	Renders RenderService
	Metrics http.Handler
}

func NewApp(logger zerolog.Logger, renders RenderService, metrics http.Handler) *App {
	return &App{Logger: logger, Renders: renders, Metrics: metrics}
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, msg string) {
	a.json(w, code, map[string]string{"error": slug, "message": msg})
}
