package extract

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"
)

// consentSettleDelay gives the banner's dismissal animation time to
// finish before a capture.
const consentSettleDelay = 500 * time.Millisecond

// DismissConsent tries each selector in order and clicks the first
// matching element. Selectors that do not match or fail to click are
// skipped; dismissal is strictly best effort and never returns an error.
func DismissConsent(page *rod.Page, consentSelectors []string) {
	for _, sel := range consentSelectors {
		// NotFoundSleeper makes Element return immediately instead of
		// waiting for the selector to appear.
		el, err := page.Sleeper(rod.NotFoundSleeper).Element(sel)
		if err != nil {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			log.Debug().Str("selector", sel).Err(err).Msg("Consent button click failed, trying next selector")
			continue
		}
		log.Debug().Str("selector", sel).Msg("Dismissed cookie consent banner")
		time.Sleep(consentSettleDelay)
		return
	}
}
