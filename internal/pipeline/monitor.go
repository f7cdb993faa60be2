package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"encarwatch/internal/acquire"
	"encarwatch/internal/browser"
	"encarwatch/internal/closure"
	"encarwatch/internal/domain"
	"encarwatch/internal/notify"
	"encarwatch/internal/pricing"
)

// Acquirer fetches search pages.
type Acquirer interface {
	FetchPages(ctx context.Context, spec acquire.FilterSpec, maxPages int) ([]*acquire.Page, error)
}

// DetailRenderer renders a listing detail page for enrichment.
type DetailRenderer interface {
	VehicleDetail(ctx context.Context, url string) (*browser.DetailData, error)
}

// ClosureScanner sweeps aged listings for closed detail pages.
type ClosureScanner interface {
	Scan(ctx context.Context) (*closure.Result, error)
}

// Alerter delivers user-facing messages.
type Alerter interface {
	Notify(ctx context.Context, title, message string) error
}

// Options configures the cycle scheduler.
type Options struct {
	RegularInterval time.Duration
	QuickInterval   time.Duration
	ClosureInterval time.Duration
	CleanupInterval time.Duration

	RegularPages    int
	PopulationPages int

	NewWindow        time.Duration
	EnrichSampleSize int

	RetentionDays   int
	CleanupMinViews int

	DailySummaryHour int
	Tick             time.Duration
}

// Monitor runs the monitoring cycles on their schedules. Cycles run
// sequentially; a failed cycle is reported and never stops the loop.
type Monitor struct {
	opts       Options
	spec       acquire.FilterSpec
	classifier *Classifier
	acquirer   Acquirer
	renderer   DetailRenderer
	closures   ClosureScanner
	listings   domain.ListingStore
	logs       domain.MonitorLogStore
	alerter    Alerter
	archiver   domain.PayloadArchiver // nil when archiving is off
	logger     *slog.Logger
	now        func() time.Time

	lastSummaryDay string
}

// NewMonitor wires a monitor. archiver may be nil.
func NewMonitor(
	opts Options,
	spec acquire.FilterSpec,
	classifier *Classifier,
	acquirer Acquirer,
	renderer DetailRenderer,
	closures ClosureScanner,
	listings domain.ListingStore,
	logs domain.MonitorLogStore,
	alerter Alerter,
	archiver domain.PayloadArchiver,
	logger *slog.Logger,
) *Monitor {
	if opts.Tick <= 0 {
		opts.Tick = 30 * time.Second
	}
	return &Monitor{
		opts:       opts,
		spec:       spec,
		classifier: classifier,
		acquirer:   acquirer,
		renderer:   renderer,
		closures:   closures,
		listings:   listings,
		logs:       logs,
		alerter:    alerter,
		archiver:   archiver,
		logger:     logger.With(slog.String("component", "monitor")),
		now:        time.Now,
	}
}

// scheduledCycle is one recurring cycle and when it last ran.
type scheduledCycle struct {
	typ   domain.CycleType
	every time.Duration
	last  time.Time
}

// Run populates an empty store, then drives the cycle schedule until
// the context is canceled.
func (m *Monitor) Run(ctx context.Context) error {
	count, err := m.listings.Count(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: initial count: %w", err)
	}
	if count == 0 {
		m.logger.Info("store is empty, running population cycle")
		if _, err := m.RunOnce(ctx, domain.CyclePopulation); err != nil {
			m.logger.Error("population cycle failed", slog.String("error", err.Error()))
		}
	}

	now := m.now()
	schedule := []*scheduledCycle{
		{typ: domain.CycleRegular, every: m.opts.RegularInterval},
		{typ: domain.CycleQuick, every: m.opts.QuickInterval},
		// Heavy browser sweeps wait out their first full interval.
		{typ: domain.CycleClosure, every: m.opts.ClosureInterval, last: now},
		{typ: domain.CycleCleanup, every: m.opts.CleanupInterval, last: now},
	}

	ticker := time.NewTicker(m.opts.Tick)
	defer ticker.Stop()

	m.logger.Info("monitor loop starting",
		slog.Duration("regular", m.opts.RegularInterval),
		slog.Duration("quick", m.opts.QuickInterval),
		slog.Duration("closure", m.opts.ClosureInterval),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop stopped")
			return ctx.Err()
		case tick := <-ticker.C:
			for _, sc := range schedule {
				if sc.every <= 0 || tick.Sub(sc.last) < sc.every {
					continue
				}
				sc.last = tick
				if _, err := m.RunOnce(ctx, sc.typ); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					m.logger.Error("cycle failed",
						slog.String("cycle", string(sc.typ)),
						slog.String("error", err.Error()),
					)
				}
			}
			m.maybeDailySummary(ctx, tick)
		}
	}
}

// RunOnce executes a single cycle of the given type, records its report
// and sends a best-effort summary.
func (m *Monitor) RunOnce(ctx context.Context, typ domain.CycleType) (domain.CycleReport, error) {
	report := domain.CycleReport{
		ID:        uuid.NewString(),
		Type:      typ,
		StartedAt: m.now(),
	}

	var err error
	switch typ {
	case domain.CyclePopulation:
		err = m.runPopulation(ctx, &report)
	case domain.CycleRegular:
		err = m.runScan(ctx, &report, m.opts.RegularPages, true)
	case domain.CycleQuick:
		err = m.runScan(ctx, &report, 1, false)
	case domain.CycleClosure:
		err = m.runClosure(ctx, &report)
	case domain.CycleCleanup:
		err = m.runCleanup(ctx, &report)
	default:
		return report, fmt.Errorf("pipeline: unknown cycle type %q", typ)
	}

	report.FinishedAt = m.now()
	if err != nil {
		report.Errors++
		report.Notes = err.Error()
	}

	if insErr := m.logs.Insert(ctx, report); insErr != nil {
		m.logger.Error("cycle report insert failed",
			slog.String("cycle", string(typ)),
			slog.String("error", insErr.Error()),
		)
	}
	m.logger.Info("cycle finished",
		slog.String("cycle", string(typ)),
		slog.Int("scanned", report.Scanned),
		slog.Int("new", report.NewFound),
		slog.Int("closed", report.Closed),
		slog.Int("errors", report.Errors),
		slog.Duration("took", report.Duration()),
	)

	// Quiet quick cycles would flood the channel. A quick cycle that
	// found, closed, or failed anything still reports.
	if typ != domain.CycleQuick || report.NewFound > 0 || report.Closed > 0 || report.Errors > 0 {
		m.sendSummary(ctx, report)
	}
	return report, err
}

// runPopulation fills an empty store with the current market baseline.
// Nothing observed here is truly new.
func (m *Monitor) runPopulation(ctx context.Context, report *domain.CycleReport) error {
	pages, err := m.acquirer.FetchPages(ctx, m.spec, m.opts.PopulationPages)
	m.archivePages(ctx, report.ID, pages)
	if err != nil && len(pages) == 0 {
		return fmt.Errorf("pipeline: population fetch: %w", err)
	}
	if err != nil {
		report.Errors++
		m.logger.Warn("population fetch incomplete", slog.String("error", err.Error()))
	}

	for _, page := range pages {
		for _, item := range page.Items {
			out, cerr := m.classifier.ClassifyBaseline(ctx, item)
			report.Scanned++
			if cerr != nil {
				report.Errors++
				m.logger.Warn("population classify failed", slog.String("error", cerr.Error()))
				continue
			}
			if out.Created {
				report.NewFound++
			} else {
				report.Updated++
			}
		}
	}
	return nil
}

// runScan acquires the freshest pages, classifies them, then consumes
// and announces truly-new coupes. Regular scans additionally enrich a
// bounded sample through the browser before alerting.
func (m *Monitor) runScan(ctx context.Context, report *domain.CycleReport, pages int, enrich bool) error {
	fetched, err := m.acquirer.FetchPages(ctx, m.spec, pages)
	m.archivePages(ctx, report.ID, fetched)
	if err != nil && len(fetched) == 0 {
		return fmt.Errorf("pipeline: scan fetch: %w", err)
	}
	if err != nil {
		report.Errors++
		m.logger.Warn("scan fetch incomplete", slog.String("error", err.Error()))
	}

	for _, page := range fetched {
		for _, item := range page.Items {
			out, cerr := m.classifier.Classify(ctx, item)
			report.Scanned++
			if cerr != nil {
				report.Errors++
				m.logger.Warn("classify failed", slog.String("error", cerr.Error()))
				continue
			}
			if out.Created {
				report.NewFound++
			} else {
				report.Updated++
			}
		}
	}

	fresh, err := m.listings.ConsumeTrulyNew(ctx, m.opts.NewWindow)
	if err != nil {
		report.Errors++
		m.logger.Error("truly-new consumption failed", slog.String("error", err.Error()))
		return nil
	}

	for i, l := range fresh {
		if enrich && i < m.opts.EnrichSampleSize {
			enriched, eerr := m.enrich(ctx, l)
			if eerr != nil {
				report.Errors++
				m.logger.Warn("enrichment failed",
					slog.String("car_id", l.CarID),
					slog.String("error", eerr.Error()),
				)
			} else {
				l = enriched
			}
		}
		title, body := notify.FormatListingAlert(l)
		if nerr := m.alerter.Notify(ctx, title, body); nerr != nil {
			m.logger.Warn("listing alert not delivered",
				slog.String("car_id", l.CarID),
				slog.String("error", nerr.Error()),
			)
		}
	}
	return nil
}

// enrich renders the detail page and folds views, registration date and
// lease contract figures into the listing, persisting the result.
func (m *Monitor) enrich(ctx context.Context, l domain.Listing) (domain.Listing, error) {
	det, err := m.renderer.VehicleDetail(ctx, l.DetailURL)
	if err != nil {
		return l, err
	}

	if det.Views > 0 {
		l.Views = det.Views
	}
	if det.RegistrationDate != "" {
		l.RegistrationDate = det.RegistrationDate
		if days := RegistrationAgeDays(det.RegistrationDate, m.now()); days >= 0 {
			l.DaysSinceRegistration = days
		}
	}
	if ext, ok := pricing.ExtractLeaseTerms(det.PageText); ok {
		l.IsLease = true
		if ext.Complete() {
			terms := ext.Terms
			l.LeaseTerms = &terms
		}
	}
	l.TruePrice = pricing.TrueCost(l)
	l.LastUpdated = m.now()

	if err := m.listings.UpdateEnrichment(ctx, l); err != nil {
		return l, err
	}
	return l, nil
}

// runClosure sweeps aged active listings for closed detail pages.
func (m *Monitor) runClosure(ctx context.Context, report *domain.CycleReport) error {
	res, err := m.closures.Scan(ctx)
	if res != nil {
		report.Scanned = res.Scanned
		report.Closed = len(res.Closed)
		report.Errors += res.Errors
	}
	if err != nil {
		return fmt.Errorf("pipeline: closure scan: %w", err)
	}
	return nil
}

// runCleanup applies the retention horizon to listings and old cycle
// reports.
func (m *Monitor) runCleanup(ctx context.Context, report *domain.CycleReport) error {
	cutoff := m.now().AddDate(0, 0, -m.opts.RetentionDays)

	deleted, err := m.listings.DeleteStale(ctx, cutoff, m.opts.CleanupMinViews)
	if err != nil {
		return fmt.Errorf("pipeline: delete stale listings: %w", err)
	}
	report.Scanned = int(deleted)

	purged, err := m.logs.DeleteBefore(ctx, cutoff)
	if err != nil {
		report.Errors++
		m.logger.Warn("cycle report purge failed", slog.String("error", err.Error()))
	}

	var archived int
	if m.archiver != nil {
		archived, err = m.archiver.PurgeBefore(ctx, cutoff)
		if err != nil {
			report.Errors++
			m.logger.Warn("archive purge failed", slog.String("error", err.Error()))
		}
	}
	report.Notes = fmt.Sprintf("deleted %d listings, %d reports, %d archived pages", deleted, purged, archived)
	return nil
}

// maybeDailySummary sends the store overview once a day at the
// configured hour.
func (m *Monitor) maybeDailySummary(ctx context.Context, now time.Time) {
	day := now.Format("2006-01-02")
	if now.Hour() != m.opts.DailySummaryHour || m.lastSummaryDay == day {
		return
	}
	m.lastSummaryDay = day

	stats, err := m.listings.Stats(ctx)
	if err != nil {
		m.logger.Error("daily summary stats failed", slog.String("error", err.Error()))
		return
	}
	reports, err := m.logs.ListSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		m.logger.Warn("daily summary report list failed", slog.String("error", err.Error()))
	}

	title, body := notify.FormatDailySummary(stats, reports)
	if err := m.alerter.Notify(ctx, title, body); err != nil {
		m.logger.Warn("daily summary not delivered", slog.String("error", err.Error()))
	}
}

// sendSummary delivers a cycle summary, best effort.
func (m *Monitor) sendSummary(ctx context.Context, report domain.CycleReport) {
	title, body := notify.FormatCycleSummary(report)
	if err := m.alerter.Notify(ctx, title, body); err != nil {
		m.logger.Warn("cycle summary not delivered",
			slog.String("cycle", string(report.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// archivePages uploads each page's raw payload when archiving is on.
func (m *Monitor) archivePages(ctx context.Context, cycleID string, pages []*acquire.Page) {
	if m.archiver == nil {
		return
	}
	for i, page := range pages {
		if err := m.archiver.ArchivePage(ctx, cycleID, i, page.Raw); err != nil {
			m.logger.Warn("raw payload archive failed",
				slog.Int("page", i),
				slog.String("error", err.Error()),
			)
		}
	}
}
