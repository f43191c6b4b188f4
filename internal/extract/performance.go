package extract

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/types"
)

const navigationTimingJS = `() => {
	const t = window.performance.timing;
	return {
		loadTime: t.loadEventEnd - t.navigationStart,
		domContentLoaded: t.domContentLoadedEventEnd - t.navigationStart,
	};
}`

const resourceTimingJS = `() => {
	const entries = performance.getEntriesByType('resource');
	let totalSize = 0;
	entries.forEach(entry => {
		if (entry.transferSize) {
			totalSize += entry.transferSize;
		}
	});
	return { count: entries.length, totalSize };
}`

// webVitalsJS approximates Core Web Vitals from buffered performance
// entries. CLS needs an observer attached before navigation and is
// never reported here.
const webVitalsJS = `() => {
	const result = {};
	const fcpEntry = performance.getEntriesByType('paint')
		.find(entry => entry.name === 'first-contentful-paint');
	if (fcpEntry) {
		result.fcp = fcpEntry.startTime;
	}
	try {
		const lcpEntries = performance.getEntriesByType('largest-contentful-paint');
		if (lcpEntries.length > 0) {
			result.lcp = lcpEntries[lcpEntries.length - 1].startTime;
		}
	} catch (e) {
		// largest-contentful-paint entries are not available everywhere
	}
	return result;
}`

// Performance collects navigation timing, resource counts, and Web
// Vitals approximations. Vitals are best effort; a failed vitals eval
// degrades to an empty metrics block rather than failing the extraction.
func Performance(page *rod.Page) (*types.PerformanceResult, error) {
	var timing struct {
		LoadTime         int `json:"loadTime"`
		DomContentLoaded int `json:"domContentLoaded"`
	}
	if err := evalJSON(page, navigationTimingJS, &timing); err != nil {
		return nil, fmt.Errorf("navigation timing collection failed: %w", err)
	}

	var resources struct {
		Count     int `json:"count"`
		TotalSize int `json:"totalSize"`
	}
	if err := evalJSON(page, resourceTimingJS, &resources); err != nil {
		return nil, fmt.Errorf("resource timing collection failed: %w", err)
	}

	var vitals types.WebVitals
	if err := evalJSON(page, webVitalsJS, &vitals); err != nil {
		log.Debug().Err(err).Msg("Web vitals collection failed, omitting metrics")
		vitals = types.WebVitals{}
	}

	return &types.PerformanceResult{
		LoadTimeMs:        clampNonNegative(timing.LoadTime),
		DomContentLoaded:  clampNonNegative(timing.DomContentLoaded),
		ResourceCount:     resources.Count,
		TotalResourceSize: resources.TotalSize,
		Metrics:           vitals,
	}, nil
}

// clampNonNegative guards against timing entries that have not fired
// yet, which make the deltas negative.
func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
