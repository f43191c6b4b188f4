package extract

import (
	"fmt"

	"github.com/go-rod/rod"

	"github.com/uxlens/pagescope/internal/types"
)

// domJS summarizes document structure in a single round trip. Sampling
// takes the first N elements in document order so repeated runs over the
// same page state produce identical output.
const domJS = `() => {
	const MAX_INTERACTIVE = 50;
	const MAX_IMAGES = 30;

	const totalElements = document.querySelectorAll('*').length;

	const interactiveSelectors = 'a, button, input, select, textarea, [role="button"], [tabindex]';
	const interactiveEls = Array.from(document.querySelectorAll(interactiveSelectors));
	const interactiveElements = interactiveEls.slice(0, MAX_INTERACTIVE).map(el => {
		const rect = el.getBoundingClientRect();
		const cls = typeof el.className === 'string' ? el.className : '';
		return {
			type: el.tagName.toLowerCase(),
			text: (el.textContent || '').trim().substring(0, 100),
			selector: el.tagName.toLowerCase()
				+ (el.id ? '#' + el.id : '')
				+ (cls ? '.' + cls.split(' ')[0] : ''),
			boundingBox: rect.width > 0 && rect.height > 0 ? {
				x: Math.round(rect.x),
				y: Math.round(rect.y),
				width: Math.round(rect.width),
				height: Math.round(rect.height),
			} : null,
		};
	});

	const headings = Array.from(document.querySelectorAll('h1, h2, h3, h4, h5, h6')).map(el => ({
		level: parseInt(el.tagName.charAt(1), 10),
		text: (el.textContent || '').trim().substring(0, 200),
	}));

	const forms = Array.from(document.querySelectorAll('form')).map(el => ({
		action: el.getAttribute('action') || '',
		method: el.getAttribute('method') || 'get',
		inputCount: el.querySelectorAll('input, select, textarea').length,
	}));

	const images = Array.from(document.querySelectorAll('img')).slice(0, MAX_IMAGES).map(el => ({
		src: el.src || '',
		alt: el.alt || null,
		hasAlt: el.hasAttribute('alt') && el.alt.trim().length > 0,
	}));

	const landmarkTypes = [
		{ type: 'header', selector: 'header, [role="banner"]' },
		{ type: 'nav', selector: 'nav, [role="navigation"]' },
		{ type: 'main', selector: 'main, [role="main"]' },
		{ type: 'footer', selector: 'footer, [role="contentinfo"]' },
		{ type: 'aside', selector: 'aside, [role="complementary"]' },
	];
	const landmarks = landmarkTypes.map(({ type, selector }) => ({
		type,
		exists: document.querySelector(selector) !== null,
	}));

	return { totalElements, interactiveElements, headings, forms, images, landmarks };
}`

// Dom analyzes document structure: element counts, interactive element
// samples, heading outline, forms, image alt coverage, and landmark
// presence.
func Dom(page *rod.Page) (*types.DomAnalysisResult, error) {
	var d types.DomAnalysisResult
	if err := evalJSON(page, domJS, &d); err != nil {
		return nil, fmt.Errorf("dom analysis failed: %w", err)
	}
	return &d, nil
}
