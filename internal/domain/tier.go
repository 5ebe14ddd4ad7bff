package domain

import "fmt"

// Tier enumerates quality/price levels.
type Tier string

const (
	TierFree         Tier = "free"
	TierProfessional Tier = "professional"
	TierStudio       Tier = "studio"
)

// StageKind identifies the role of one pipeline stage.
type StageKind string

const (
	StageEdgeConditioning StageKind = "edge_conditioning"
	StageStyleTransfer    StageKind = "style_transfer"
	StageUpscale          StageKind = "upscale"
)

// StageSpec describes one stage of a tier's pipeline. The ordered stage list
// on TierConfig is the single source of truth for pipeline shape.
type StageSpec struct {
	Kind StageKind
	// Strength controls how far a style-transfer stage departs from its
	// input image. Deeper pipelines use tighter strengths.
	Strength float64
	// PromptPrefix is prepended to the positive prompt for this stage.
	PromptPrefix string
	// NoOp marks a reserved stage that is defined but not executed.
	NoOp bool
}

// TierConfig is immutable per-tier generation configuration.
type TierConfig struct {
	Name          Tier
	DisplayName   string
	Width         int
	Height        int
	Steps         int
	GuidanceScale float64
	EdgeWeight    float64
	PriceUSD      float64
	Stages        []StageSpec
}

var tierConfigs = map[Tier]TierConfig{
	TierFree: {
		Name:          TierFree,
		DisplayName:   "Free",
		Width:         768,
		Height:        768,
		Steps:         20,
		GuidanceScale: 7.0,
		EdgeWeight:    0,
		PriceUSD:      0,
		Stages: []StageSpec{
			{Kind: StageStyleTransfer, Strength: 0.85},
		},
	},
	TierProfessional: {
		Name:          TierProfessional,
		DisplayName:   "Professional",
		Width:         1024,
		Height:        1024,
		Steps:         30,
		GuidanceScale: 7.5,
		EdgeWeight:    0.8,
		PriceUSD:      0.49,
		Stages: []StageSpec{
			{Kind: StageEdgeConditioning},
			{Kind: StageStyleTransfer, Strength: 0.65},
		},
	},
	TierStudio: {
		Name:          TierStudio,
		DisplayName:   "Studio",
		Width:         1536,
		Height:        1536,
		Steps:         40,
		GuidanceScale: 8.0,
		EdgeWeight:    1.0,
		PriceUSD:      1.99,
		Stages: []StageSpec{
			{Kind: StageEdgeConditioning},
			{Kind: StageStyleTransfer, Strength: 0.55, PromptPrefix: "masterpiece, best quality, ultra-detailed"},
			// Reserved extension point for a dedicated upscale model.
			{Kind: StageUpscale, NoOp: true},
		},
	},
}

// ResolveTier looks up the configuration for a named tier.
func ResolveTier(name string) (TierConfig, error) {
	cfg, ok := tierConfigs[Tier(name)]
	if !ok {
		return TierConfig{}, fmt.Errorf("%w: %q", ErrUnknownTier, name)
	}
	return cfg, nil
}
