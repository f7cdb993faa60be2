// Package closure decides whether a tracked listing has left the
// marketplace and records the one-way active to closed transition.
package closure

import (
	"net/http"
	"strings"

	"encarwatch/internal/domain"
)

// confirmedPhrases are the marketplace's own withdrawal messages. Any
// of them on a detail page is definitive.
var confirmedPhrases = []string{
	"이 차량은 판매되었거나 삭제된 차량입니다",
	"판매완료된 차량입니다",
	"삭제된 차량입니다",
	"존재하지 않는 차량입니다",
}

// errorRegionMarkers are DOM markers the site renders in place of the
// vehicle detail when the listing is gone.
var errorRegionMarkers = []string{
	"DetailNone",
	"no_data",
	"detail-none",
}

// errorTitleWords mark a generic error document served under a 200.
var errorTitleWords = []string{
	"404",
	"not found",
	"Not Found",
	"오류",
	"페이지를 찾을 수 없습니다",
}

// errorURLFragments mark a redirect onto the site's error handler.
var errorURLFragments = []string{
	"/error",
	"errorPage",
	"/404",
}

// Evaluate inspects a rendered detail page and reports whether the
// listing is gone, with the reason. Evaluation order matters: hard HTTP
// signals outrank redirects, which outrank page content.
func Evaluate(snap *domain.PageSnapshot) (domain.ClosureReason, bool) {
	if snap == nil {
		return "", false
	}

	if snap.StatusCode == http.StatusNotFound {
		return domain.ClosureHTTP404, true
	}
	if snap.StatusCode >= 400 {
		return domain.ClosureErrorPage, true
	}

	for _, frag := range errorURLFragments {
		if strings.Contains(snap.FinalURL, frag) {
			return domain.ClosureRedirectError, true
		}
	}

	for _, phrase := range confirmedPhrases {
		if strings.Contains(snap.Content, phrase) {
			return domain.ClosureConfirmedMessage, true
		}
	}

	for _, marker := range errorRegionMarkers {
		if strings.Contains(snap.Content, marker) {
			return domain.ClosureErrorElement, true
		}
	}

	for _, word := range errorTitleWords {
		if strings.Contains(snap.Title, word) {
			return domain.ClosureErrorPage, true
		}
	}

	return "", false
}
