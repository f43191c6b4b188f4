package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-rod/rod"

	"github.com/uxlens/pagescope/internal/types"
)

const metadataJS = `() => {
	const getMetaContent = (selectors) => {
		for (const selector of selectors) {
			const el = document.querySelector(selector);
			if (el) {
				return el.getAttribute('content') || null;
			}
		}
		return null;
	};
	const getLinkHref = (rel) => {
		const el = document.querySelector('link[rel="' + rel + '"]');
		return el ? (el.getAttribute('href') || null) : null;
	};
	return {
		title: document.title || '',
		description: getMetaContent([
			'meta[name="description"]',
			'meta[property="og:description"]',
			'meta[name="twitter:description"]',
		]) || '',
		image: getMetaContent([
			'meta[property="og:image"]',
			'meta[name="twitter:image"]',
		]),
		siteName: getMetaContent(['meta[property="og:site_name"]']),
		url: window.location.href,
		favicon: getLinkHref('icon') || getLinkHref('shortcut icon') || '/favicon.ico',
		lang: document.documentElement.lang || null,
	};
}`

// Metadata extracts document metadata from the page head. Description
// falls back from the standard meta tag to Open Graph to Twitter card;
// the favicon is resolved to an absolute URL against the final page URL.
func Metadata(page *rod.Page) (*types.MetadataResult, error) {
	var m types.MetadataResult
	if err := evalJSON(page, metadataJS, &m); err != nil {
		return nil, fmt.Errorf("metadata extraction failed: %w", err)
	}
	m.Favicon = ResolveFavicon(m.Favicon, m.URL)
	return &m, nil
}

// ResolveFavicon makes a favicon reference absolute against the page
// URL. Already-absolute references pass through unchanged; an empty
// reference falls back to /favicon.ico. If either URL fails to parse
// the reference is returned as-is.
func ResolveFavicon(favicon, pageURL string) string {
	if favicon == "" {
		favicon = "/favicon.ico"
	}
	if strings.HasPrefix(favicon, "http://") || strings.HasPrefix(favicon, "https://") {
		return favicon
	}
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return favicon
	}
	ref, err := url.Parse(favicon)
	if err != nil {
		return favicon
	}
	return base.ResolveReference(ref).String()
}
