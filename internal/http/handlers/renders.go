package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"aquarelle/internal/domain"
	"aquarelle/internal/render"
)

type renderCreateRequest struct {
	ImageURL   string `json:"image_url"`
	Tier       string `json:"tier"`
	RoomType   string `json:"room_type"`
	Style      string `json:"style"`
	Atmosphere string `json:"atmosphere,omitempty"`
	ColorTone  string `json:"color_tone,omitempty"`
	ProjectID  string `json:"project_id,omitempty"`
}

type renderCreateResponse struct {
	RenderID      string `json:"render_id"`
	EstimatedTime string `json:"estimated_time"`
}

type renderStatusResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OutputURL    string `json:"output_url,omitempty"`
	Error        string `json:"error,omitempty"`
	ProcessingMS int64  `json:"processing_ms"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// RendersCreate accepts a render submission and responds 202 immediately;
// the pipeline runs in the background.
func (a *App) RendersCreate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req renderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "image_url required")
		return
	}
	style, ok := domain.ParseStyle(req.Style)
	if !ok {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported style")
		return
	}

	result, err := a.Renders.Submit(r.Context(), render.SubmitInput{
		UserID:         userID,
		SourceImageURL: req.ImageURL,
		Tier:           strings.ToLower(strings.TrimSpace(req.Tier)),
		RoomType:       req.RoomType,
		Style:          style,
		Atmosphere:     req.Atmosphere,
		ColorTone:      req.ColorTone,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		a.renderSubmitError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, renderCreateResponse{RenderID: result.RenderID, EstimatedTime: result.EstimatedTime})
}

func (a *App) renderSubmitError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
	case errors.Is(err, domain.ErrProfileNotFound):
		a.error(w, http.StatusNotFound, "profile_not_found", "billing profile not found")
	case errors.Is(err, domain.ErrUpgradeRequired):
		a.error(w, http.StatusForbidden, "upgrade_required", "this tier requires a paid subscription")
	case errors.Is(err, domain.ErrInsufficientCredits):
		a.error(w, http.StatusForbidden, "insufficient_credits", "no render credits remaining")
	case errors.Is(err, domain.ErrUnknownTier):
		a.error(w, http.StatusBadRequest, "bad_request", "unknown tier")
	default:
		a.Logger.Error().Err(err).Msg("render submit failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to submit render")
	}
}

// RenderStatus reports the current job record for the authenticated owner.
func (a *App) RenderStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	renderID := chi.URLParam(r, "render_id")
	if renderID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "render_id required")
		return
	}
	job, err := a.Renders.Status(r.Context(), renderID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "render not found")
			return
		}
		a.Logger.Error().Err(err).Str("render_id", renderID).Msg("render status failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load render")
		return
	}
	a.json(w, http.StatusOK, renderStatusResponse{
		ID:           job.ID,
		Status:       string(job.Status),
		OutputURL:    job.OutputImageURL,
		Error:        job.ErrorMessage,
		ProcessingMS: job.ProcessingMS,
		CreatedAt:    job.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:    job.UpdatedAt.UTC().Format(timeLayout),
	})
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
