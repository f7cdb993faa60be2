package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"encarwatch/internal/acquire"
	"encarwatch/internal/domain"
)

// MonitorMode runs the full cycle scheduler until the context is cancelled.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	err := deps.Monitor.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// PopulateMode runs a one-shot population cycle and exits.
func (a *App) PopulateMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting populate mode")

	report, err := deps.Monitor.RunOnce(ctx, domain.CyclePopulation)
	a.logReport(report)
	return err
}

// ScanMode runs a one-shot regular scan cycle and exits.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")

	report, err := deps.Monitor.RunOnce(ctx, domain.CycleRegular)
	a.logReport(report)
	return err
}

// ClosuresMode runs a one-shot closure sweep and exits.
func (a *App) ClosuresMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting closures mode")

	report, err := deps.Monitor.RunOnce(ctx, domain.CycleClosure)
	a.logReport(report)
	return err
}

// ReplayMode re-parses one day of archived raw search payloads into the
// store. Useful after a parser fix, or to rebuild a store from the
// archive without touching the marketplace.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	if deps.BlobReader == nil {
		return fmt.Errorf("app: replay mode requires s3 archival to be enabled")
	}

	day := a.cfg.ReplayDate
	if day == "" {
		day = time.Now().UTC().Format("2006-01-02")
	}
	a.logger.InfoContext(ctx, "starting replay mode", slog.String("day", day))

	infos, err := deps.BlobReader.List(ctx, "raw/"+day+"/")
	if err != nil {
		return fmt.Errorf("app: list archived payloads: %w", err)
	}

	var stored, failed int
	for _, info := range infos {
		body, err := deps.BlobReader.Get(ctx, info.Path)
		if err != nil {
			return fmt.Errorf("app: fetch archived payload %s: %w", info.Path, err)
		}
		data, err := io.ReadAll(body)
		body.Close()
		if err != nil {
			return fmt.Errorf("app: read archived payload %s: %w", info.Path, err)
		}

		page, err := acquire.ParsePage(data)
		if err != nil {
			failed++
			a.logger.Warn("archived payload did not parse",
				slog.String("path", info.Path),
				slog.String("error", err.Error()))
			continue
		}
		for _, item := range page.Items {
			// Replayed observations are historical and never truly new.
			if _, err := deps.Classifier.ClassifyBaseline(ctx, item); err != nil {
				failed++
				continue
			}
			stored++
		}
	}

	a.logger.Info("replay finished",
		slog.String("day", day),
		slog.Int("objects", len(infos)),
		slog.Int("stored", stored),
		slog.Int("failed", failed))
	return nil
}

// StatusMode prints a snapshot of the store and the most recent cycles.
func (a *App) StatusMode(ctx context.Context, deps *Dependencies) error {
	stats, err := deps.Listings.Stats(ctx)
	if err != nil {
		return fmt.Errorf("app: store stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "listings total\t%d\n", stats.Total)
	fmt.Fprintf(w, "active\t%d\n", stats.Active)
	fmt.Fprintf(w, "closed\t%d\n", stats.Closed)
	fmt.Fprintf(w, "leases\t%d\n", stats.Leases)
	fmt.Fprintf(w, "truly new\t%d\n", stats.TrulyNew)
	for reason, n := range stats.ByClosure {
		fmt.Fprintf(w, "closed (%s)\t%d\n", reason, n)
	}
	if !stats.OldestFirst.IsZero() {
		fmt.Fprintf(w, "oldest first seen\t%s\n", stats.OldestFirst.Format(time.RFC3339))
	}
	if !stats.NewestFirst.IsZero() {
		fmt.Fprintf(w, "newest first seen\t%s\n", stats.NewestFirst.Format(time.RFC3339))
	}

	for _, t := range []domain.CycleType{
		domain.CyclePopulation, domain.CycleRegular, domain.CycleQuick,
		domain.CycleClosure, domain.CycleCleanup,
	} {
		last, err := deps.Logs.Last(ctx, t)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("app: last %s cycle: %w", t, err)
		}
		fmt.Fprintf(w, "last %s\t%s (scanned %d, new %d, closed %d, errors %d)\n",
			t, last.FinishedAt.Format(time.RFC3339),
			last.Scanned, last.NewFound, last.Closed, last.Errors)
	}
	return w.Flush()
}

func (a *App) logReport(r domain.CycleReport) {
	a.logger.Info("cycle report",
		slog.String("cycle", string(r.Type)),
		slog.Int("scanned", r.Scanned),
		slog.Int("new", r.NewFound),
		slog.Int("updated", r.Updated),
		slog.Int("closed", r.Closed),
		slog.Int("errors", r.Errors),
		slog.Duration("took", r.Duration()),
	)
}
