package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// FetchJSON drives an API URL through the browser and returns the raw
// JSON body. Chrome wraps bare JSON responses in a <pre> element; when
// that is absent the body text itself is taken.
func (r *Renderer) FetchJSON(ctx context.Context, url string) ([]byte, error) {
	tabCtx, cancel := r.tab(ctx)
	defer cancel()

	var body string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(`(() => {
			const pre = document.querySelector('pre');
			if (pre) return pre.innerText;
			return document.body ? document.body.innerText : '';
		})()`, &body),
	)
	if err != nil {
		return nil, fmt.Errorf("browser: fetch json: %w", err)
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("browser: fetch json: empty body")
	}
	if body[0] != '{' && body[0] != '[' {
		head := body
		if len(head) > 80 {
			head = head[:80]
		}
		return nil, fmt.Errorf("browser: fetch json: non-json body %q", head)
	}
	return []byte(body), nil
}
