package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"aquarelle/internal/adapter/repo"
	"aquarelle/internal/domain"
	"aquarelle/internal/middleware"
	"aquarelle/internal/pipeline"
	"aquarelle/internal/render"
)

type okRunner struct{}

func (okRunner) Run(context.Context, string, domain.TierConfig, string, string) (pipeline.Result, error) {
	return pipeline.Result{OutputImageURL: "https://cdn.example.com/out.png", BackendJobRef: "backend-1"}, nil
}

type handlerFixture struct {
	app      *App
	jobs     *repo.MemoryRenderJobRepository
	profiles *repo.MemoryBillingProfileRepository
	service  *render.Service
	router   chi.Router
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	jobs := repo.NewMemoryRenderJobRepository()
	profiles := repo.NewMemoryBillingProfileRepository()
	service := render.NewService(jobs, profiles, okRunner{}, zerolog.Nop(), nil)
	app := NewApp(zerolog.Nop(), service, nil)

	r := chi.NewRouter()
	r.Post("/v1/renders", app.RendersCreate)
	r.Get("/v1/renders/{render_id}", app.RenderStatus)

	return &handlerFixture{app: app, jobs: jobs, profiles: profiles, service: service, router: r}
}

func (f *handlerFixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req = req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func validBody() map[string]string {
	return map[string]string{
		"image_url": "https://example.com/room.jpg",
		"tier":      "free",
		"room_type": "living room",
		"style":     "classic",
	}
}

func TestRendersCreateRequiresAuth(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/renders", "", validBody())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want 401", rec.Code)
	}
}

func TestRendersCreateNoProfile(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, http.MethodPost, "/v1/renders", "alice", validBody())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d want 404", rec.Code)
	}
}

func TestRendersCreateUpgradeRequired(t *testing.T) {
	f := newHandlerFixture(t)
	f.profiles.Put(domain.BillingProfile{UserID: "alice", SubscriptionTier: domain.TierFree, CreditsRemaining: 3})

	body := validBody()
	body["tier"] = "professional"
	rec := f.do(t, http.MethodPost, "/v1/renders", "alice", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d want 403", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "upgrade_required" {
		t.Fatalf("error slug: %q", resp["error"])
	}
}

func TestRendersCreateInsufficientCredits(t *testing.T) {
	f := newHandlerFixture(t)
	f.profiles.Put(domain.BillingProfile{UserID: "alice", SubscriptionTier: domain.TierFree, CreditsRemaining: 0})

	rec := f.do(t, http.MethodPost, "/v1/renders", "alice", validBody())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: got %d want 403", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "insufficient_credits" {
		t.Fatalf("error slug: %q", resp["error"])
	}
}

func TestRendersCreateRejectsBadStyle(t *testing.T) {
	f := newHandlerFixture(t)
	f.profiles.Put(domain.BillingProfile{UserID: "alice", SubscriptionTier: domain.TierFree, CreditsRemaining: 3})

	body := validBody()
	body["style"] = "cubist"
	rec := f.do(t, http.MethodPost, "/v1/renders", "alice", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want 400", rec.Code)
	}
}

func TestRendersCreateAccepted(t *testing.T) {
	f := newHandlerFixture(t)
	f.profiles.Put(domain.BillingProfile{UserID: "alice", SubscriptionTier: domain.TierFree, CreditsRemaining: 3})

	rec := f.do(t, http.MethodPost, "/v1/renders", "alice", validBody())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status: got %d want 202 (%s)", rec.Code, rec.Body.String())
	}
	var resp renderCreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RenderID == "" {
		t.Fatal("missing render_id")
	}
	if resp.EstimatedTime != "10-15 seconds" {
		t.Fatalf("estimated_time: %q", resp.EstimatedTime)
	}
}

func TestRenderStatusLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newHandlerFixture(t)
	f.profiles.Put(domain.BillingProfile{UserID: "alice", SubscriptionTier: domain.TierFree, CreditsRemaining: 3})

	rec := f.do(t, http.MethodPost, "/v1/renders", "alice", validBody())
	var created renderCreateResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = f.do(t, http.MethodGet, "/v1/renders/"+created.RenderID, "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d want 200", rec.Code)
	}
	var status renderStatusResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Status != "processing" {
		t.Fatalf("initial status: %q", status.Status)
	}

	// Drive the background path synchronously.
	job, err := f.jobs.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext error: %v", err)
	}
	f.service.Process(ctx, job)

	rec = f.do(t, http.MethodGet, "/v1/renders/"+created.RenderID, "alice", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &status)
	if status.Status != "completed" || status.OutputURL == "" {
		t.Fatalf("terminal status: %+v", status)
	}

	// Foreign owner sees 404, not 403.
	rec = f.do(t, http.MethodGet, "/v1/renders/"+created.RenderID, "mallory", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign owner status: got %d want 404", rec.Code)
	}
}

func TestRenderStatusUnknownID(t *testing.T) {
	f := newHandlerFixture(t)
	rec := f.do(t, http.MethodGet, "/v1/renders/nope", "alice", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: got %d want 404", rec.Code)
	}
}
