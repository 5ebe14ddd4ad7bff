package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"aquarelle/internal/domain"
	"aquarelle/internal/imagegen"
)

// Model identifiers on the generation backend.
const (
	ModelStyleTransfer    = "watercolor-xl-v2"
	ModelEdgeConditioning = "lineart-control-v1"
)

// Edge-conditioning stages use their own fixed prompts, independent of the
// user-facing style prompt.
const (
	edgePrompt        = "architectural lines, clean edges, structural detail preserved"
	edgeNegative      = "broken lines, missing walls, warped geometry, noise"
	edgeStageStrength = 0.9
	edgeControlType   = "canny"
)

// Generator is the slice of the backend client the orchestrator needs.
type Generator interface {
	Generate(ctx context.Context, modelID string, params imagegen.GenerateParams) (imagegen.Result, error)
}

// Result is the final outcome of a pipeline run.
type Result struct {
	OutputImageURL string
	BackendJobRef  string
}

// Orchestrator executes the ordered stage sequence of a tier, threading each
// stage's output image into the next stage's input. It performs no
// persistence; the caller owns the job record.
type Orchestrator struct {
	generator Generator
	logger    zerolog.Logger
}

func NewOrchestrator(generator Generator, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{generator: generator, logger: logger}
}

// Run executes every stage in cfg.Stages against the source image. Any stage
// failure fails the whole run; there are no retries and no partial results.
func (o *Orchestrator) Run(ctx context.Context, sourceImageURL string, cfg domain.TierConfig, positive, negative string) (Result, error) {
	input := sourceImageURL
	var jobRef string

	for _, stage := range cfg.Stages {
		if stage.NoOp {
			o.logger.Debug().Str("tier", string(cfg.Name)).Str("stage", string(stage.Kind)).Msg("pipeline: skipping reserved stage")
			continue
		}
		result, err := o.runStage(ctx, stage, cfg, input, positive, negative)
		if err != nil {
			return Result{}, fmt.Errorf("stage %s: %w", stage.Kind, err)
		}
		input = result.ImageURL
		jobRef = result.JobRef
	}

	return Result{OutputImageURL: input, BackendJobRef: jobRef}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage domain.StageSpec, cfg domain.TierConfig, inputURL, positive, negative string) (imagegen.Result, error) {
	params := imagegen.GenerateParams{
		ImageURL:      inputURL,
		Width:         cfg.Width,
		Height:        cfg.Height,
		Steps:         cfg.Steps,
		GuidanceScale: cfg.GuidanceScale,
	}

	var model string
	switch stage.Kind {
	case domain.StageEdgeConditioning:
		model = ModelEdgeConditioning
		params.Prompt = edgePrompt
		params.NegativePrompt = edgeNegative
		params.Strength = edgeStageStrength
		params.ControlType = edgeControlType
		params.ControlWeight = cfg.EdgeWeight
	case domain.StageStyleTransfer:
		model = ModelStyleTransfer
		params.Prompt = positive
		if stage.PromptPrefix != "" {
			params.Prompt = stage.PromptPrefix + ", " + positive
		}
		params.NegativePrompt = negative
		params.Strength = stage.Strength
	default:
		return imagegen.Result{}, fmt.Errorf("unsupported stage kind %q", stage.Kind)
	}

	return o.generator.Generate(ctx, model, params)
}
