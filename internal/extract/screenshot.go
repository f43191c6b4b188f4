package extract

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/uxlens/pagescope/internal/types"
)

// animationSettleDelay lets late layout shifts and entry animations
// finish before the capture.
const animationSettleDelay = 500 * time.Millisecond

// ScreenshotOptions controls one capture.
type ScreenshotOptions struct {
	FullPage bool
	Width    int // viewport width already applied to the page
	Height   int
	Format   string // "png" or "jpeg"
	Quality  int    // jpeg only, 1-100
}

const documentSizeJS = `() => ({
	width: Math.max(document.documentElement.scrollWidth, document.body ? document.body.scrollWidth : 0),
	height: Math.max(document.documentElement.scrollHeight, document.body ? document.body.scrollHeight : 0),
})`

// Screenshot dismisses any cookie-consent banner, waits for animations
// to settle, and captures the page. The reported dimensions are the
// viewport for a regular capture and the full scrollable document size
// for a full-page capture.
func Screenshot(page *rod.Page, consentSelectors []string, opts ScreenshotOptions) (*types.ScreenshotResult, error) {
	DismissConsent(page, consentSelectors)
	time.Sleep(animationSettleDelay)

	format := strings.ToLower(opts.Format)
	req := &proto.PageCaptureScreenshot{}
	switch format {
	case "jpeg":
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		quality := opts.Quality
		if quality < 1 || quality > 100 {
			quality = 80
		}
		req.Quality = &quality
	default:
		format = "png"
		req.Format = proto.PageCaptureScreenshotFormatPng
	}

	data, err := page.Screenshot(opts.FullPage, req)
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}

	width, height := opts.Width, opts.Height
	if opts.FullPage {
		var size struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		}
		if err := evalJSON(page, documentSizeJS, &size); err != nil {
			log.Debug().Err(err).Msg("Failed to read document size, reporting viewport dimensions")
		} else {
			if size.Width > 0 {
				width = size.Width
			}
			if size.Height > 0 {
				height = size.Height
			}
		}
	}

	return &types.ScreenshotResult{
		Base64:    base64.StdEncoding.EncodeToString(data),
		Format:    format,
		Width:     width,
		Height:    height,
		SizeBytes: len(data),
	}, nil
}
