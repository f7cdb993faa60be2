package closure

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"encarwatch/internal/domain"
)

// memSource is an in-memory ListingSource for scanner tests.
type memSource struct {
	mu       sync.Mutex
	listings map[string]domain.Listing
}

func newMemSource(ls ...domain.Listing) *memSource {
	m := &memSource{listings: make(map[string]domain.Listing)}
	for _, l := range ls {
		m.listings[l.CarID] = l
	}
	return m
}

func (m *memSource) ListActiveOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Listing
	for _, l := range m.listings {
		if !l.IsClosed && l.FirstSeen.Before(cutoff) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstSeen.Before(out[j].FirstSeen) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSource) MarkClosed(ctx context.Context, carID string, reason domain.ClosureReason, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[carID]
	if !ok {
		return domain.ErrNotFound
	}
	if l.IsClosed {
		return nil
	}
	l.IsClosed = true
	l.ClosureReason = reason
	l.ClosureDetectedAt = &at
	m.listings[carID] = l
	return nil
}

// fakeRenderer returns a canned snapshot or error per URL.
type fakeRenderer struct {
	mu    sync.Mutex
	snaps map[string]*domain.PageSnapshot
	errs  map[string]error
	calls int
}

func (f *fakeRenderer) Snapshot(ctx context.Context, url string) (*domain.PageSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if snap, ok := f.snaps[url]; ok {
		return snap, nil
	}
	return &domain.PageSnapshot{StatusCode: 200, FinalURL: url, Title: "ok", Content: "<html>정상</html>"}, nil
}

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func aged(carID string, days int) domain.Listing {
	return domain.Listing{
		CarID:     carID,
		DetailURL: "https://fem.encar.com/cars/detail/" + carID,
		FirstSeen: time.Now().AddDate(0, 0, -days),
	}
}

func TestScanClosesGoneListing(t *testing.T) {
	gone := aged("100", 10)
	alive := aged("200", 10)
	src := newMemSource(gone, alive)

	r := &fakeRenderer{snaps: map[string]*domain.PageSnapshot{
		gone.DetailURL: {StatusCode: 404},
	}}

	s := NewScanner(Options{MinAgeDays: 3, BatchSize: 10}, src, r, testLogger(t))
	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Scanned != 2 {
		t.Errorf("scanned = %d, want 2", res.Scanned)
	}
	if len(res.Closed) != 1 || res.Closed[0].CarID != "100" {
		t.Fatalf("closed = %+v, want listing 100", res.Closed)
	}
	if res.Closed[0].ClosureReason != domain.ClosureHTTP404 {
		t.Errorf("reason = %s, want %s", res.Closed[0].ClosureReason, domain.ClosureHTTP404)
	}

	stored := src.listings["100"]
	if !stored.IsClosed || stored.ClosureDetectedAt == nil {
		t.Error("store not updated with closure")
	}
	if src.listings["200"].IsClosed {
		t.Error("healthy listing closed")
	}
}

func TestScanSecondPassIsNoOp(t *testing.T) {
	gone := aged("100", 10)
	src := newMemSource(gone)
	r := &fakeRenderer{snaps: map[string]*domain.PageSnapshot{
		gone.DetailURL: {StatusCode: 404},
	}}
	s := NewScanner(Options{MinAgeDays: 3, BatchSize: 10}, src, r, testLogger(t))

	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	first := src.listings["100"].ClosureDetectedAt

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if res.Scanned != 0 || len(res.Closed) != 0 {
		t.Errorf("second pass scanned=%d closed=%d, want 0/0", res.Scanned, len(res.Closed))
	}
	if src.listings["100"].ClosureDetectedAt != first {
		t.Error("closure timestamp changed on second pass")
	}
}

func TestScanSkipsYoungListings(t *testing.T) {
	young := aged("300", 1)
	src := newMemSource(young)
	r := &fakeRenderer{}
	s := NewScanner(Options{MinAgeDays: 3, BatchSize: 10}, src, r, testLogger(t))

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Scanned != 0 || r.calls != 0 {
		t.Errorf("young listing scanned (scanned=%d, renderer calls=%d)", res.Scanned, r.calls)
	}
}

func TestScanRenderErrorKeepsListingActive(t *testing.T) {
	flaky := aged("400", 10)
	src := newMemSource(flaky)
	r := &fakeRenderer{errs: map[string]error{
		flaky.DetailURL: errors.New("tab crashed"),
	}}
	s := NewScanner(Options{MinAgeDays: 3, BatchSize: 10}, src, r, testLogger(t))

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Errors != 1 {
		t.Errorf("errors = %d, want 1", res.Errors)
	}
	if src.listings["400"].IsClosed {
		t.Error("render error must not close the listing")
	}
}

func TestScanTimeoutKeepsListingActive(t *testing.T) {
	slow := aged("500", 10)
	src := newMemSource(slow)
	r := &fakeRenderer{errs: map[string]error{
		slow.DetailURL: context.DeadlineExceeded,
	}}
	s := NewScanner(Options{MinAgeDays: 3, BatchSize: 10}, src, r, testLogger(t))

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Errors != 1 {
		t.Errorf("errors = %d, want 1", res.Errors)
	}
	if len(res.Closed) != 0 || src.listings["500"].IsClosed {
		t.Error("navigation timeout must not close the listing")
	}
}

func TestScanResponselessNavigationCloses(t *testing.T) {
	dead := aged("600", 10)
	src := newMemSource(dead)
	r := &fakeRenderer{snaps: map[string]*domain.PageSnapshot{
		dead.DetailURL: {},
	}}
	s := NewScanner(Options{MinAgeDays: 3, BatchSize: 10}, src, r, testLogger(t))

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Closed) != 1 || res.Closed[0].ClosureReason != domain.ClosureNoResponse {
		t.Fatalf("closed = %+v, want no-response closure", res.Closed)
	}
}

func TestScanRespectsBatchSize(t *testing.T) {
	src := newMemSource(aged("1", 10), aged("2", 10), aged("3", 10))
	r := &fakeRenderer{}
	s := NewScanner(Options{MinAgeDays: 3, BatchSize: 2}, src, r, testLogger(t))

	res, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if res.Scanned != 2 {
		t.Errorf("scanned = %d, want batch size 2", res.Scanned)
	}
}
