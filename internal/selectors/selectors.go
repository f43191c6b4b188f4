// Package selectors provides cookie-consent dismissal selector loading
// and management.
package selectors

import (
	"embed"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed consent.yaml
var defaultSelectorsFS embed.FS

// Selectors contains the CSS selectors used to dismiss cookie-consent
// banners before a screenshot is taken. Selectors are tried in order;
// the first one that matches a clickable element wins.
type Selectors struct {
	ConsentButtons []string `yaml:"consent_buttons"`
}

// Validate checks that the selector set is usable.
func (s *Selectors) Validate() error {
	if len(s.ConsentButtons) == 0 {
		return fmt.Errorf("selectors must have at least one consent_buttons entry")
	}
	return nil
}

var (
	instance *Selectors
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Selectors instance loaded from the embedded
// consent.yaml file.
func Get() *Selectors {
	once.Do(func() {
		instance, loadErr = load()
		if loadErr != nil {
			log.Error().Err(loadErr).Msg("Failed to load embedded selectors, using defaults")
			instance = defaultSelectors()
		}
	})
	return instance
}

func load() (*Selectors, error) {
	data, err := defaultSelectorsFS.ReadFile("consent.yaml")
	if err != nil {
		return nil, err
	}

	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	log.Debug().
		Int("consent_selectors", len(s.ConsentButtons)).
		Msg("Selectors loaded")

	return &s, nil
}

// defaultSelectors returns hardcoded fallback selectors.
func defaultSelectors() *Selectors {
	return &Selectors{
		ConsentButtons: []string{
			`[class*="cookie"] button[class*="accept"]`,
			`[class*="cookie"] button[class*="agree"]`,
			`[id*="cookie"] button[class*="accept"]`,
			`button[class*="consent"]`,
			`[class*="gdpr"] button`,
			"#onetrust-accept-btn-handler",
			".cc-btn.cc-dismiss",
		},
	}
}
