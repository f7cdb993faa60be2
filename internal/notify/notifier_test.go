package notify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"encarwatch/internal/domain"
)

type recordSender struct {
	mu     sync.Mutex
	sent   []string
	err    error
	sender string
}

func (r *recordSender) Send(ctx context.Context, title, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, title)
	return nil
}

func (r *recordSender) Name() string {
	if r.sender != "" {
		return r.sender
	}
	return "record"
}

// stubLimiter answers a fixed sequence of Allow calls.
type stubLimiter struct {
	mu      sync.Mutex
	answers []bool
	err     error
}

func (s *stubLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	if len(s.answers) == 0 {
		return true, nil
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(sink{}, nil))
}

type sink struct{}

func (sink) Write(p []byte) (int, error) { return len(p), nil }

func TestNotifyDropsWhenLimitExhausted(t *testing.T) {
	s := &recordSender{}
	lim := &stubLimiter{answers: []bool{true, false, true}}
	n := NewNotifier([]Sender{s}, lim, 2, time.Minute, quietLogger())
	ctx := context.Background()

	if err := n.Notify(ctx, "first", "m"); err != nil {
		t.Errorf("first notify: %v", err)
	}
	if err := n.Notify(ctx, "second", "m"); !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("exhausted notify error = %v, want ErrRateLimited", err)
	}
	if err := n.Notify(ctx, "third", "m"); err != nil {
		t.Errorf("third notify: %v", err)
	}

	if len(s.sent) != 2 || s.sent[0] != "first" || s.sent[1] != "third" {
		t.Errorf("sent = %v, want [first third] (second dropped, never queued)", s.sent)
	}
}

func TestNotifySendsWhenLimiterBroken(t *testing.T) {
	s := &recordSender{}
	lim := &stubLimiter{err: errors.New("redis down")}
	n := NewNotifier([]Sender{s}, lim, 1, time.Minute, quietLogger())

	if err := n.Notify(context.Background(), "alert", "m"); err != nil {
		t.Errorf("notify with broken limiter: %v", err)
	}
	if len(s.sent) != 1 {
		t.Errorf("sent = %v, want delivery despite limiter failure", s.sent)
	}
}

func TestNotifyPartialSenderFailure(t *testing.T) {
	good := &recordSender{sender: "good"}
	bad := &recordSender{sender: "bad", err: errors.New("boom")}
	n := NewNotifier([]Sender{bad, good}, nil, 1, time.Minute, quietLogger())

	err := n.Notify(context.Background(), "alert", "m")
	if err == nil {
		t.Error("expected combined error from failing sender")
	}
	if len(good.sent) != 1 {
		t.Error("remaining sender skipped after earlier failure")
	}
}

func TestLocalLimiterSlidingWindow(t *testing.T) {
	lim := NewLocalLimiter()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := lim.Allow(ctx, "k", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("allow %d = %v, %v", i, ok, err)
		}
	}
	ok, _ := lim.Allow(ctx, "k", 3, time.Minute)
	if ok {
		t.Error("4th event allowed past limit of 3")
	}
	// Other keys are independent.
	if ok, _ := lim.Allow(ctx, "other", 3, time.Minute); !ok {
		t.Error("independent key throttled")
	}
}

func TestFormatListingAlertLease(t *testing.T) {
	l := domain.Listing{
		Title:     "벤츠 GLE400d 4MATIC 쿠페",
		Year:      2021,
		Mileage:   41000,
		Price:     165,
		TruePrice: 6091,
		IsLease:   true,
		LeaseTerms: &domain.LeaseTerms{
			Deposit:        1801,
			MonthlyPayment: 165,
			TermMonths:     26,
		},
		DetailURL: "https://fem.encar.com/cars/detail/123",
	}

	_, body := FormatListingAlert(l)
	for _, want := range []string{"6,091만원", "1,801만원", "26개월", "리스/렌트"} {
		if !strings.Contains(body, want) {
			t.Errorf("lease alert missing %q:\n%s", want, body)
		}
	}
}

func TestFormatListingAlertFreshness(t *testing.T) {
	fresh := domain.Listing{Title: "GLE", Views: 3, TruePrice: 8000}
	title, _ := FormatListingAlert(fresh)
	if !strings.Contains(title, "방금 등록") {
		t.Errorf("low-view no-registration listing should get the hottest marker, got %q", title)
	}

	known := domain.Listing{Title: "GLE", Views: 88, RegistrationDate: "2026/08/20", IsTrulyNew: true, TruePrice: 8000}
	title, _ = FormatListingAlert(known)
	if !strings.Contains(title, "신규") {
		t.Errorf("truly-new listing title = %q", title)
	}
}

func TestFormatCycleSummary(t *testing.T) {
	r := domain.CycleReport{
		Type:       domain.CycleRegular,
		StartedAt:  time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 8, 31, 10, 1, 30, 0, time.UTC),
		Scanned:    60,
		NewFound:   2,
		Errors:     1,
	}
	title, body := FormatCycleSummary(r)
	if !strings.Contains(title, "정기") {
		t.Errorf("title = %q", title)
	}
	for _, want := range []string{"60건", "신규: 2건", "오류: 1건", "1m30s"} {
		if !strings.Contains(body, want) {
			t.Errorf("summary missing %q:\n%s", want, body)
		}
	}
}
