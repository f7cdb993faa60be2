package browser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// DetailData is what a rendered listing detail page yields for
// enrichment: the engagement counter, the tooltip registration date,
// and the page text for lease extraction.
type DetailData struct {
	Views            int
	RegistrationDate string // YYYY/MM/DD, empty when not shown
	PageText         string
}

var (
	viewsRe   = regexp.MustCompile(`조회수?\s*[:：]?\s*([0-9,]+)`)
	regDateRe = regexp.MustCompile(`최초등록일[^0-9]*(\d{4}/\d{2}/\d{2})`)
)

// VehicleDetail renders a listing's detail page and extracts the fields
// only the browser can see.
func (r *Renderer) VehicleDetail(ctx context.Context, url string) (*DetailData, error) {
	tabCtx, cancel := r.tab(ctx)
	defer cancel()

	var text string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.Sleep(3*time.Second),
		chromedp.Evaluate(`document.body ? document.body.innerText : ''`, &text),
	)
	if err != nil {
		return nil, fmt.Errorf("browser: vehicle detail %s: %w", url, err)
	}

	return parseDetailText(text), nil
}

// parseDetailText pulls the structured fields out of raw page text.
func parseDetailText(text string) *DetailData {
	d := &DetailData{PageText: text}
	if m := viewsRe.FindStringSubmatch(text); m != nil {
		raw := strings.ReplaceAll(m[1], ",", "")
		if n, err := strconv.Atoi(raw); err == nil {
			d.Views = n
		}
	}
	if m := regDateRe.FindStringSubmatch(text); m != nil {
		d.RegistrationDate = m[1]
	}
	return d
}
