package extract

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/uxlens/pagescope/internal/types"
)

// accessibilityJS runs the audit rule set in the page and returns the
// raw issue list. Scoring and truncation happen server-side.
const accessibilityJS = `() => {
	const issues = [];

	document.querySelectorAll('img').forEach((img, index) => {
		if (!img.hasAttribute('alt')) {
			issues.push({
				type: 'missing-alt',
				severity: 'error',
				element: 'img[' + index + ']: ' + (img.src || '').substring(0, 50),
				message: 'Image has no alt attribute.',
			});
		} else if (img.alt.trim() === '') {
			issues.push({
				type: 'empty-alt',
				severity: 'warning',
				element: 'img[' + index + ']: ' + (img.src || '').substring(0, 50),
				message: 'Image alt attribute is empty.',
			});
		}
	});

	const inputs = document.querySelectorAll(
		'input:not([type="hidden"]):not([type="submit"]):not([type="button"]), select, textarea');
	inputs.forEach((input, index) => {
		const id = input.id;
		const hasLabel = id && document.querySelector('label[for="' + CSS.escape(id) + '"]');
		const hasAriaLabel = input.hasAttribute('aria-label') || input.hasAttribute('aria-labelledby');
		const hasPlaceholder = input.hasAttribute('placeholder');
		if (!hasLabel && !hasAriaLabel) {
			issues.push({
				type: 'missing-label',
				severity: hasPlaceholder ? 'warning' : 'error',
				element: input.tagName.toLowerCase() + '[' + index + ']',
				message: 'Form control has no associated label.',
			});
		}
	});

	const headings = Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6'));
	let lastLevel = 0;
	headings.forEach((heading, index) => {
		const level = parseInt(heading.tagName.charAt(1), 10);
		if (index === 0 && level !== 1) {
			issues.push({
				type: 'heading-order',
				severity: 'warning',
				element: heading.tagName,
				message: 'Page does not start with an h1.',
			});
		} else if (level > lastLevel + 1) {
			issues.push({
				type: 'heading-skip',
				severity: 'warning',
				element: heading.tagName,
				message: 'Heading level jumps from ' + lastLevel + ' to ' + level + '.',
			});
		}
		lastLevel = level;
	});

	const h1Count = document.querySelectorAll('h1').length;
	if (h1Count > 1) {
		issues.push({
			type: 'multiple-h1',
			severity: 'warning',
			element: 'h1',
			message: 'Page has ' + h1Count + ' h1 elements, one is recommended.',
		});
	}

	document.querySelectorAll('a').forEach((link, index) => {
		const hasText = (link.textContent || '').trim();
		const hasAriaLabel = link.hasAttribute('aria-label');
		const hasImage = link.querySelector('img[alt]');
		if (!hasText && !hasAriaLabel && !hasImage) {
			issues.push({
				type: 'empty-link',
				severity: 'error',
				element: 'a[' + index + ']',
				message: 'Link has no accessible text.',
			});
		}
	});

	document.querySelectorAll('button, [role="button"]').forEach((button, index) => {
		const hasText = (button.textContent || '').trim();
		const hasAriaLabel = button.hasAttribute('aria-label');
		if (!hasText && !hasAriaLabel) {
			issues.push({
				type: 'empty-button',
				severity: 'error',
				element: 'button[' + index + ']',
				message: 'Button has no accessible text.',
			});
		}
	});

	return issues;
}`

// Accessibility runs the in-page audit and scores the findings.
func Accessibility(page *rod.Page) (*types.AccessibilityResult, error) {
	var issues []types.AccessibilityIssue
	if err := evalJSON(page, accessibilityJS, &issues); err != nil {
		return nil, fmt.Errorf("accessibility audit failed: %w", err)
	}
	return Summarize(issues), nil
}

// Summarize computes the audit score and truncates the reported issue
// list. IssueCount always carries the uncapped total.
func Summarize(issues []types.AccessibilityIssue) *types.AccessibilityResult {
	errorCount, warningCount := 0, 0
	for _, issue := range issues {
		switch issue.Severity {
		case types.SeverityError:
			errorCount++
		case types.SeverityWarning:
			warningCount++
		}
	}

	reported := issues
	if len(reported) > types.MaxReportedIssues {
		reported = reported[:types.MaxReportedIssues]
	}
	if reported == nil {
		reported = []types.AccessibilityIssue{}
	}

	return &types.AccessibilityResult{
		Score:      Score(errorCount, warningCount),
		IssueCount: len(issues),
		Issues:     reported,
	}
}

// Score maps finding counts onto a 0-100 scale. Errors cost 10 points,
// warnings 3, clamped to [0, 100].
func Score(errorCount, warningCount int) int {
	score := 100 - errorCount*10 - warningCount*3
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
