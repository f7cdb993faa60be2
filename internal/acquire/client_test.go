package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"encarwatch/internal/domain"
)

const samplePayload = `{"Count": 2, "SearchResults": [
	{"Id": 38991111, "Manufacturer": "벤츠", "Model": "GLE-클래스", "Badge": "GLE400d 쿠페", "Year": 202109, "Mileage": 41000, "Price": 8290},
	{"Id": 38992222, "Manufacturer": "벤츠", "Model": "GLE-클래스", "Badge": "GLE450", "Year": 202201, "Mileage": 22000, "Price": 9150}
]}`

// fakeHarvester counts harvests and serves canned fallback payloads.
type fakeHarvester struct {
	harvests    atomic.Int32
	fallbacks   atomic.Int32
	fallbackErr error
}

func (f *fakeHarvester) HarvestSession(ctx context.Context, homeURL string, ttl time.Duration) (*domain.Session, error) {
	f.harvests.Add(1)
	return &domain.Session{
		Cookies:   []domain.Cookie{{Name: "sid", Value: fmt.Sprintf("v%d", f.harvests.Load())}},
		UserAgent: "test-agent",
		CreatedAt: time.Now(),
		TTL:       ttl,
	}, nil
}

func (f *fakeHarvester) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	f.fallbacks.Add(1)
	if f.fallbackErr != nil {
		return nil, f.fallbackErr
	}
	return []byte(samplePayload), nil
}

func newTestClient(t *testing.T, serverURL string, h Harvester) *Client {
	t.Helper()
	return NewClient(Options{
		APIHost:     serverURL,
		HomeURL:     "http://home.test",
		PageSize:    20,
		MaxAttempts: 3,
		SessionTTL:  time.Hour,
	}, h, nil, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestFetchPageDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") == "" {
			t.Error("direct request missing session cookies")
		}
		fmt.Fprint(w, samplePayload)
	}))
	defer srv.Close()

	h := &fakeHarvester{}
	c := newTestClient(t, srv.URL, h)

	page, err := c.FetchPage(context.Background(), FilterSpec{Manufacturer: "벤츠", ModelGroup: "GLE-클래스"}, 0)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Errorf("got total=%d items=%d, want 2/2", page.Total, len(page.Items))
	}
	if h.harvests.Load() != 1 {
		t.Errorf("harvests = %d, want 1", h.harvests.Load())
	}
	if h.fallbacks.Load() != 0 {
		t.Errorf("fallback used on direct success")
	}
}

func TestFetchPageBrowserFallbackOn407(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusProxyAuthRequired)
	}))
	defer srv.Close()

	h := &fakeHarvester{}
	c := newTestClient(t, srv.URL, h)

	page, err := c.FetchPage(context.Background(), FilterSpec{Manufacturer: "벤츠", ModelGroup: "GLE-클래스"}, 0)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Items) != 2 {
		t.Errorf("fallback page items = %d, want 2", len(page.Items))
	}
	// Successful fallback keeps the session: exactly one harvest.
	if h.harvests.Load() != 1 {
		t.Errorf("harvests = %d, want 1 (no rebuild on successful fallback)", h.harvests.Load())
	}
	if h.fallbacks.Load() != 1 {
		t.Errorf("fallbacks = %d, want 1", h.fallbacks.Load())
	}
}

func TestFetchPageRebuildsSessionOn403(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		// The retry must carry a fresh session.
		if got := r.Header.Get("Cookie"); got != "sid=v2" {
			t.Errorf("retry cookie = %q, want sid=v2", got)
		}
		fmt.Fprint(w, samplePayload)
	}))
	defer srv.Close()

	h := &fakeHarvester{}
	c := newTestClient(t, srv.URL, h)

	if _, err := c.FetchPage(context.Background(), FilterSpec{Manufacturer: "벤츠", ModelGroup: "GLE-클래스"}, 0); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if h.harvests.Load() != 2 {
		t.Errorf("harvests = %d, want 2 (rebuild after 403)", h.harvests.Load())
	}
}

func TestFetchPageExhaustsAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	h := &fakeHarvester{}
	c := newTestClient(t, srv.URL, h)

	_, err := c.FetchPage(context.Background(), FilterSpec{Manufacturer: "벤츠", ModelGroup: "GLE-클래스"}, 0)
	if err == nil {
		t.Fatal("expected exhaustion error")
	}
	var acqErr *domain.AcquisitionError
	if !errors.As(err, &acqErr) {
		t.Fatalf("error type = %T, want *domain.AcquisitionError", err)
	}
	if acqErr.Kind != domain.AcqExhausted {
		t.Errorf("kind = %s, want %s", acqErr.Kind, domain.AcqExhausted)
	}
	if acqErr.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", acqErr.Attempts)
	}
}

func TestFetchPageFailedFallbackRebuilds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusProxyAuthRequired)
			return
		}
		fmt.Fprint(w, samplePayload)
	}))
	defer srv.Close()

	h := &fakeHarvester{fallbackErr: errors.New("render failed")}
	c := newTestClient(t, srv.URL, h)

	if _, err := c.FetchPage(context.Background(), FilterSpec{Manufacturer: "벤츠", ModelGroup: "GLE-클래스"}, 0); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if h.harvests.Load() != 2 {
		t.Errorf("harvests = %d, want 2 (rebuild after failed fallback)", h.harvests.Load())
	}
}
