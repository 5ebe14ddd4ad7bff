package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"aquarelle/internal/domain"
	"aquarelle/internal/imagegen"
)

type fakeCall struct {
	Model  string
	Params imagegen.GenerateParams
}

type fakeGenerator struct {
	calls   []fakeCall
	failOn  int
	failErr error
}

func (f *fakeGenerator) Generate(_ context.Context, modelID string, params imagegen.GenerateParams) (imagegen.Result, error) {
	f.calls = append(f.calls, fakeCall{Model: modelID, Params: params})
	if f.failErr != nil && len(f.calls) == f.failOn {
		return imagegen.Result{}, f.failErr
	}
	n := len(f.calls)
	return imagegen.Result{
		ImageURL: fmt.Sprintf("https://cdn.example.com/stage-%d.png", n),
		JobRef:   fmt.Sprintf("backend-job-%d", n),
	}, nil
}

func mustTier(t *testing.T, name string) domain.TierConfig {
	t.Helper()
	cfg, err := domain.ResolveTier(name)
	if err != nil {
		t.Fatalf("ResolveTier(%q): %v", name, err)
	}
	return cfg
}

func TestRunFreeTierSingleStage(t *testing.T) {
	gen := &fakeGenerator{}
	orch := NewOrchestrator(gen, zerolog.Nop())

	result, err := orch.Run(context.Background(), "https://example.com/room.jpg", mustTier(t, "free"), "positive", "negative")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("expected 1 backend call, got %d", len(gen.calls))
	}
	call := gen.calls[0]
	if call.Model != ModelStyleTransfer {
		t.Fatalf("unexpected model: %s", call.Model)
	}
	if call.Params.ControlType != "" {
		t.Fatalf("free tier must not use edge conditioning, got control type %q", call.Params.ControlType)
	}
	if call.Params.ImageURL != "https://example.com/room.jpg" {
		t.Fatalf("source image not threaded: %q", call.Params.ImageURL)
	}
	if result.OutputImageURL != "https://cdn.example.com/stage-1.png" {
		t.Fatalf("unexpected output: %s", result.OutputImageURL)
	}
}

func TestRunProfessionalThreadsStageOutput(t *testing.T) {
	gen := &fakeGenerator{}
	orch := NewOrchestrator(gen, zerolog.Nop())

	result, err := orch.Run(context.Background(), "https://example.com/room.jpg", mustTier(t, "professional"), "positive", "negative")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(gen.calls))
	}
	edge := gen.calls[0]
	if edge.Model != ModelEdgeConditioning {
		t.Fatalf("first stage model mismatch: %s", edge.Model)
	}
	if edge.Params.ControlType != "canny" {
		t.Fatalf("control type mismatch: %q", edge.Params.ControlType)
	}
	if edge.Params.NegativePrompt == "negative" {
		t.Fatal("edge stage must use its own negative prompt")
	}
	style := gen.calls[1]
	if style.Params.ImageURL != "https://cdn.example.com/stage-1.png" {
		t.Fatalf("conditioning output not threaded into style stage: %q", style.Params.ImageURL)
	}
	if style.Params.Strength != 0.65 {
		t.Fatalf("strength mismatch: %v", style.Params.Strength)
	}
	if result.OutputImageURL != "https://cdn.example.com/stage-2.png" {
		t.Fatalf("unexpected output: %s", result.OutputImageURL)
	}
}

func TestRunStudioSkipsReservedUpscale(t *testing.T) {
	gen := &fakeGenerator{}
	orch := NewOrchestrator(gen, zerolog.Nop())

	result, err := orch.Run(context.Background(), "https://example.com/room.jpg", mustTier(t, "studio"), "positive", "negative")
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	// Three logical stages, but the upscale stage is reserved and not executed.
	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(gen.calls))
	}
	style := gen.calls[1]
	if !strings.HasPrefix(style.Params.Prompt, "masterpiece, best quality, ultra-detailed") {
		t.Fatalf("augmented prompt missing: %q", style.Params.Prompt)
	}
	if style.Params.Strength != 0.55 {
		t.Fatalf("strength mismatch: %v", style.Params.Strength)
	}
	if result.BackendJobRef != "backend-job-2" {
		t.Fatalf("unexpected job ref: %s", result.BackendJobRef)
	}
}

func TestRunStageFailureFailsWholePipeline(t *testing.T) {
	backendErr := &imagegen.BackendError{Code: "overloaded", Message: "try later"}
	gen := &fakeGenerator{failOn: 2, failErr: backendErr}
	orch := NewOrchestrator(gen, zerolog.Nop())

	_, err := orch.Run(context.Background(), "https://example.com/room.jpg", mustTier(t, "studio"), "positive", "negative")
	if err == nil {
		t.Fatal("expected error")
	}
	var got *imagegen.BackendError
	if !errors.As(err, &got) {
		t.Fatalf("underlying error lost: %v", err)
	}
	if !strings.Contains(err.Error(), "style_transfer") {
		t.Fatalf("stage name missing from error: %v", err)
	}
	// No retry: exactly two calls, the failing one last.
	if len(gen.calls) != 2 {
		t.Fatalf("expected 2 backend calls, got %d", len(gen.calls))
	}
}

func TestTierStageCounts(t *testing.T) {
	for name, want := range map[string]int{"free": 1, "professional": 2, "studio": 3} {
		cfg := mustTier(t, name)
		if len(cfg.Stages) != want {
			t.Fatalf("tier %s stage count: got %d want %d", name, len(cfg.Stages), want)
		}
	}
	if _, err := domain.ResolveTier("enterprise"); !errors.Is(err, domain.ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestStrengthsTightenWithDepth(t *testing.T) {
	free := lastStyleStrength(t, mustTier(t, "free"))
	pro := lastStyleStrength(t, mustTier(t, "professional"))
	studio := lastStyleStrength(t, mustTier(t, "studio"))
	if !(free > pro && pro > studio) {
		t.Fatalf("strengths do not tighten: free=%v pro=%v studio=%v", free, pro, studio)
	}
}

func lastStyleStrength(t *testing.T, cfg domain.TierConfig) float64 {
	t.Helper()
	for i := len(cfg.Stages) - 1; i >= 0; i-- {
		if cfg.Stages[i].Kind == domain.StageStyleTransfer {
			return cfg.Stages[i].Strength
		}
	}
	t.Fatalf("tier %s has no style transfer stage", cfg.Name)
	return 0
}
