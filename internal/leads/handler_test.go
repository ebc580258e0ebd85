package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/trading-academy/internal/accounts"
	"github.com/wolfman30/trading-academy/internal/notify"
	"github.com/wolfman30/trading-academy/internal/ratelimit"
)

type stubProvisioner struct {
	calls []accounts.ProvisionRequest
}

func (p *stubProvisioner) Provision(_ context.Context, req accounts.ProvisionRequest) (*accounts.ProvisionResult, error) {
	p.calls = append(p.calls, req)
	return &accounts.ProvisionResult{
		Profile:      &accounts.Profile{ID: "profile-42", Email: req.Email, FullName: req.FullName, License: req.Tier},
		Created:      true,
		TempPassword: "s3cret-temp",
	}, nil
}

type stubWelcomer struct {
	sent []notify.WelcomeEmail
}

func (s *stubWelcomer) SendWelcome(_ context.Context, w notify.WelcomeEmail) error {
	s.sent = append(s.sent, w)
	return nil
}

func newTestHandler(limiter ratelimit.Limiter) (*Handler, *InMemoryRepository, *stubProvisioner, *stubWelcomer) {
	repo := NewInMemoryRepository()
	prov := &stubProvisioner{}
	mail := &stubWelcomer{}
	return NewHandler(NewService(repo, prov, mail, nil, nil), limiter, nil), repo, prov, mail
}

func postJSON(h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func TestRegister_CapitalBounds(t *testing.T) {
	handler, _, _, _ := newTestHandler(nil)

	w := postJSON(handler.Register, "/leads/register", RegisterLeadRequest{
		FirstName: "Jean", Email: "jean@example.com", Capital: 250, Consent: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp RegisterResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Segment != SegmentLow {
		t.Errorf("expected segment low, got %s", resp.Segment)
	}
	if resp.ID == "" {
		t.Errorf("expected an id")
	}

	for _, capital := range []float64{150, 999999999} {
		w := postJSON(handler.Register, "/leads/register", RegisterLeadRequest{
			FirstName: "Jean", Email: "jean@example.com", Capital: capital,
		})
		if w.Code != http.StatusBadRequest {
			t.Errorf("capital %v: expected status %d, got %d", capital, http.StatusBadRequest, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"field":"capital"`) {
			t.Errorf("capital %v: expected capital field error, got %s", capital, w.Body.String())
		}
	}
}

func TestRegister_Validation(t *testing.T) {
	handler, _, _, _ := newTestHandler(nil)

	cases := map[string]RegisterLeadRequest{
		"first_name": {Email: "a@example.com", Capital: 500},
		"email":      {FirstName: "A", Email: "not-an-email", Capital: 500},
		"phone":      {FirstName: "A", Email: "a@example.com", Phone: "12ab", Capital: 500},
	}
	for field, req := range cases {
		w := postJSON(handler.Register, "/leads/register", req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status %d, got %d", field, http.StatusBadRequest, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"field":"`+field+`"`) {
			t.Errorf("%s: unexpected body %s", field, w.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/leads/register", strings.NewReader("{"))
	w := httptest.NewRecorder()
	handler.Register(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for bad json, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestRegister_UpsertsByEmail(t *testing.T) {
	handler, repo, _, _ := newTestHandler(nil)

	first := postJSON(handler.Register, "/leads/register", RegisterLeadRequest{FirstName: "Jean", Email: "Jean@Example.com", Capital: 500})
	second := postJSON(handler.Register, "/leads/register", RegisterLeadRequest{FirstName: "Jean", Email: "jean@example.com", Capital: 15000})

	var a, b RegisterResponse
	_ = json.NewDecoder(first.Body).Decode(&a)
	_ = json.NewDecoder(second.Body).Decode(&b)
	if a.ID != b.ID {
		t.Fatalf("expected the same lead id, got %s and %s", a.ID, b.ID)
	}
	if b.Segment != SegmentHigh {
		t.Errorf("expected segment high after upsert, got %s", b.Segment)
	}
	all, _ := repo.List(context.Background(), ListFilter{})
	if len(all) != 1 {
		t.Errorf("expected 1 lead, got %d", len(all))
	}
}

func TestRegister_EmailRateLimit(t *testing.T) {
	handler, _, _, _ := newTestHandler(ratelimit.NewMemoryLimiter(1, time.Minute))

	body := RegisterLeadRequest{FirstName: "Jean", Email: "jean@example.com", Capital: 500}
	if w := postJSON(handler.Register, "/leads/register", body); w.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", w.Code)
	}
	w := postJSON(handler.Register, "/leads/register", body)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Errorf("expected Retry-After header")
	}
}

func TestUpdateCapital(t *testing.T) {
	handler, _, _, _ := newTestHandler(nil)
	postJSON(handler.Register, "/leads/register", RegisterLeadRequest{FirstName: "Jean", Email: "jean@example.com", Capital: 500})

	w := postJSON(handler.UpdateCapital, "/leads/capital", UpdateCapitalRequest{Email: "JEAN@example.com", Capital: 5000})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp RegisterResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Segment != SegmentMedium {
		t.Errorf("expected segment medium, got %s", resp.Segment)
	}

	w = postJSON(handler.UpdateCapital, "/leads/capital", UpdateCapitalRequest{Email: "unknown@example.com", Capital: 5000})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestConvertLead(t *testing.T) {
	handler, repo, prov, mail := newTestHandler(nil)
	lead, err := repo.Upsert(context.Background(), &RegisterLeadRequest{FirstName: "Jean", LastName: "Dupont", Email: "jean@example.com", Capital: 500})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := chi.NewRouter()
	r.Post("/admin/leads/{id}/convert", handler.Convert)

	req := httptest.NewRequest(http.MethodPost, "/admin/leads/"+lead.ID+"/convert", strings.NewReader(`{"tier":"pro"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if len(prov.calls) != 1 || prov.calls[0].Tier != accounts.TierPro || prov.calls[0].FullName != "Jean Dupont" {
		t.Fatalf("unexpected provision calls: %+v", prov.calls)
	}
	if len(mail.sent) != 1 || mail.sent[0].TempPassword != "s3cret-temp" {
		t.Fatalf("unexpected welcome emails: %+v", mail.sent)
	}

	got, _ := repo.GetByID(context.Background(), lead.ID)
	if got.Status != StatusConverted || got.ProfileID != "profile-42" {
		t.Errorf("expected converted lead linked to profile, got %+v", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/leads/"+lead.ID+"/convert", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d on second conversion, got %d", http.StatusConflict, w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/leads/missing/convert", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d for unknown lead, got %d", http.StatusNotFound, w.Code)
	}
}

func TestListLeads_FilterBySegment(t *testing.T) {
	handler, repo, _, _ := newTestHandler(nil)
	ctx := context.Background()
	_, _ = repo.Upsert(ctx, &RegisterLeadRequest{FirstName: "A", Email: "a@example.com", Capital: 300})
	_, _ = repo.Upsert(ctx, &RegisterLeadRequest{FirstName: "B", Email: "b@example.com", Capital: 50000})

	req := httptest.NewRequest(http.MethodGet, "/admin/leads?segment=high", nil)
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ListLeadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || resp.Leads[0].Email != "b@example.com" {
		t.Errorf("unexpected listing: %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/leads?segment=vip", nil)
	w = httptest.NewRecorder()
	handler.ListLeads(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
