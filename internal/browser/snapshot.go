package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"encarwatch/internal/domain"
)

// Snapshot renders a page and returns what a closure check needs: the
// document's HTTP status, where the navigation ended up, the title, and
// the rendered markup.
func (r *Renderer) Snapshot(ctx context.Context, url string) (*domain.PageSnapshot, error) {
	tabCtx, cancel := r.tab(ctx)
	defer cancel()

	var (
		mu     sync.Mutex
		status int
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument {
				mu.Lock()
				if status == 0 {
					status = int(resp.Response.Status)
				}
				mu.Unlock()
			}
		}
	})

	var title, finalURL, content string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second),
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
		chromedp.Evaluate(`document.documentElement ? document.documentElement.outerHTML : ''`, &content),
	)
	if err != nil {
		return nil, fmt.Errorf("browser: snapshot %s: %w", url, err)
	}

	mu.Lock()
	st := status
	mu.Unlock()

	return &domain.PageSnapshot{
		StatusCode: st,
		FinalURL:   finalURL,
		Title:      title,
		Content:    content,
	}, nil
}
