// Package browser drives a headless Chrome instance for the three things
// the plain HTTP path cannot do: harvesting a browsing session the API
// accepts, fetching API responses through the browser when the direct
// path is blocked, and rendering listing detail pages.
package browser

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the shared browser process.
type Options struct {
	BinaryPath string
	Headless   bool
	UserAgent  string
	NavTimeout time.Duration
}

// Renderer owns one Chrome process; every operation opens its own tab
// with its own deadline so a hung page never wedges the allocator.
type Renderer struct {
	allocCtx   context.Context
	cancel     []context.CancelFunc
	navTimeout time.Duration
	logger     *slog.Logger
}

// NewRenderer launches the browser allocator. The caller must Close it.
func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	bin := opts.BinaryPath
	if bin == "" {
		bin = findChromeBinary()
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(ua),
	)
	if bin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Suppress chromedp log noise.
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	timeout := opts.NavTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Renderer{
		allocCtx:   silentCtx,
		cancel:     []context.CancelFunc{cancelSilent, cancelAlloc},
		navTimeout: timeout,
		logger:     logger.With(slog.String("component", "browser")),
	}
}

// Close shuts down the browser process.
func (r *Renderer) Close() {
	for _, c := range r.cancel {
		c()
	}
}

// tab opens a fresh tab context bounded by the navigation timeout.
func (r *Renderer) tab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(r.allocCtx)
	timed, cancelTimed := context.WithTimeout(tabCtx, r.navTimeout)
	// Propagate caller cancellation into the tab.
	go func() {
		select {
		case <-ctx.Done():
			cancelTimed()
		case <-timed.Done():
		}
	}()
	return timed, func() {
		cancelTimed()
		cancelTab()
	}
}

// findChromeBinary locates a Chrome or Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
