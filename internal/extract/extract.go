// Package extract implements the per-page extraction steps of the
// analysis pipeline. Each extractor runs against a page that has already
// finished navigating; callers pass a context-bound page so every
// in-browser evaluation honors the request deadline.
package extract

import (
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// evalJSON runs a JS function expression in the page and decodes its
// JSON-serializable return value into out.
func evalJSON(page *rod.Page, js string, out any) error {
	res, err := page.Eval(js)
	if err != nil {
		return fmt.Errorf("page eval failed: %w", err)
	}
	return decodeValue(res.Value, out)
}

// decodeValue unmarshals a CDP evaluation result into out.
func decodeValue(v gson.JSON, out any) error {
	if err := json.Unmarshal([]byte(v.JSON("", "")), out); err != nil {
		return fmt.Errorf("failed to decode eval result: %w", err)
	}
	return nil
}
