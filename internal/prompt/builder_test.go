package prompt

import (
	"strings"
	"testing"

	"aquarelle/internal/domain"
)

func TestBuildComposesFragments(t *testing.T) {
	positive, negative := Build("Living Room", domain.StyleLoose, "cozy", "warm earth")

	if !strings.Contains(positive, "watercolor painting of a living room interior") {
		t.Fatalf("room fragment missing: %q", positive)
	}
	if !strings.Contains(positive, "wet-on-wet") {
		t.Fatalf("style fragment missing: %q", positive)
	}
	if !strings.Contains(positive, "cozy atmosphere") {
		t.Fatalf("atmosphere fragment missing: %q", positive)
	}
	if !strings.Contains(positive, "warm earth color palette") {
		t.Fatalf("color tone fragment missing: %q", positive)
	}
	if negative != NegativeBoilerplate {
		t.Fatalf("negative prompt mismatch: %q", negative)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	p1, n1 := Build("kitchen", domain.StyleArchitectural, "", "")
	p2, n2 := Build("kitchen", domain.StyleArchitectural, "", "")
	if p1 != p2 || n1 != n2 {
		t.Fatal("identical inputs produced different prompts")
	}
}

func TestBuildOmitsEmptyHints(t *testing.T) {
	positive, _ := Build("bedroom", domain.StyleMinimal, "", "")
	if strings.Contains(positive, "atmosphere") {
		t.Fatalf("unexpected atmosphere fragment: %q", positive)
	}
	if strings.Contains(positive, "palette") {
		t.Fatalf("unexpected palette fragment: %q", positive)
	}
}

func TestBuildFallsBackToClassicStyle(t *testing.T) {
	positive, _ := Build("office", domain.RenderStyle("cubist"), "", "")
	if !strings.Contains(positive, "classic watercolor painting") {
		t.Fatalf("expected classic fallback: %q", positive)
	}
}

func TestDisplayStyle(t *testing.T) {
	if got := DisplayStyle(domain.StyleArchitectural); got != "Architectural" {
		t.Fatalf("DisplayStyle mismatch: %q", got)
	}
}
