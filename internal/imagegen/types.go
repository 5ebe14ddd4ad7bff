package imagegen

// GenerateParams carries the full parameter set for one generation call.
// Resolution, steps, guidance, and conditioning values come from tier
// configuration, never from caller discretion.
type GenerateParams struct {
	Prompt         string
	NegativePrompt string
	ImageURL       string
	Width          int
	Height         int
	Steps          int
	GuidanceScale  float64
	// Strength controls how far the output departs from the input image.
	Strength float64
	// ControlType/ControlWeight enable structural conditioning ("canny").
	ControlType   string
	ControlWeight float64
	Seed          *int
}

// Result is the outcome of a successful generation call.
type Result struct {
	ImageURL string
	JobRef   string
}

// RemoteState enumerates backend-side job states.
type RemoteState string

const (
	RemoteQueued    RemoteState = "queued"
	RemoteRunning   RemoteState = "running"
	RemoteSucceeded RemoteState = "succeeded"
	RemoteFailed    RemoteState = "failed"
	RemoteCancelled RemoteState = "cancelled"
)

// RemoteStatus reports the backend's view of a generation job.
type RemoteStatus struct {
	JobRef   string
	State    RemoteState
	ImageURL string
	Error    string
}
