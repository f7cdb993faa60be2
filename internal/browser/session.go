package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"encarwatch/internal/domain"
)

// HarvestSession visits the marketplace home page in a real browser and
// captures everything the direct API path needs to look like that
// browser: cookies, the reported user agent, and the header set the API
// expects.
func (r *Renderer) HarvestSession(ctx context.Context, homeURL string, ttl time.Duration) (*domain.Session, error) {
	tabCtx, cancel := r.tab(ctx)
	defer cancel()

	var ua string
	var cookies []*network.Cookie

	err := chromedp.Run(tabCtx,
		network.Enable(),
		chromedp.Navigate(homeURL),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(`navigator.userAgent`, &ua),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser: harvest session: %w", err)
	}
	if len(cookies) == 0 {
		return nil, fmt.Errorf("browser: harvest session: no cookies set")
	}

	sess := &domain.Session{
		UserAgent: ua,
		CreatedAt: time.Now(),
		TTL:       ttl,
		Headers: map[string]string{
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
			"Origin":          "https://www.encar.com",
			"Referer":         "https://www.encar.com/",
		},
	}
	for _, c := range cookies {
		sess.Cookies = append(sess.Cookies, domain.Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}

	r.logger.Info("session harvested",
		slog.String("user_agent", ua),
		slog.Int("cookies", len(sess.Cookies)))
	return sess, nil
}
