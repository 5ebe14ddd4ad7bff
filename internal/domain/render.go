package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// RenderStyle enumerates supported watercolor styles.
type RenderStyle string

const (
	StyleClassic       RenderStyle = "classic"
	StyleLoose         RenderStyle = "loose"
	StyleArchitectural RenderStyle = "architectural"
	StyleMinimal       RenderStyle = "minimal"
)

// RenderStatus enumerates render job lifecycle states.
type RenderStatus string

const (
	// StatusPending is reserved for a future synchronous queue mode.
	// The current flow creates jobs directly in StatusProcessing.
	StatusPending    RenderStatus = "pending"
	StatusProcessing RenderStatus = "processing"
	StatusCompleted  RenderStatus = "completed"
	StatusFailed     RenderStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s RenderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RenderSettings captures the semantic inputs used to build prompts.
// Stored alongside the job as an opaque JSON blob.
type RenderSettings struct {
	Tier       string `json:"tier"`
	RoomType   string `json:"room_type"`
	Atmosphere string `json:"atmosphere,omitempty"`
	ColorTone  string `json:"color_tone,omitempty"`
}

// RenderJob tracks one render request from submission to terminal outcome.
type RenderJob struct {
	ID             string
	UserID         string
	ProjectID      string
	SourceImageURL string
	Style          RenderStyle
	Settings       RenderSettings
	Status         RenderStatus
	OutputImageURL string
	ErrorMessage   string
	ProcessingMS   int64
	ClaimedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SettingsJSON renders the settings blob for persistence.
func (j *RenderJob) SettingsJSON() []byte {
	b, _ := json.Marshal(j.Settings)
	return b
}

// ParseStyle sanitizes free-form user input into a supported style.
func ParseStyle(s string) (RenderStyle, bool) {
	switch RenderStyle(strings.ToLower(strings.TrimSpace(s))) {
	case StyleClassic:
		return StyleClassic, true
	case StyleLoose:
		return StyleLoose, true
	case StyleArchitectural:
		return StyleArchitectural, true
	case StyleMinimal:
		return StyleMinimal, true
	default:
		return "", false
	}
}
