package domain

import (
	"fmt"
	"strings"
)

// Target is one monitored page.
//
// Targets are loaded once at startup and never mutated afterwards; the
// orchestrator shares them read-only between goroutines.
type Target struct {
	// ID is the stable identifier. It keys the persisted state, so changing
	// it loses the target's history.
	ID string `yaml:"id" json:"id"`

	// Name is the display name used in logs and error digests.
	Name string `yaml:"name" json:"name"`

	// URL is the page fetched on every probe.
	URL string `yaml:"url" json:"url"`

	// OutOfStockText is matched case-insensitively against the page body.
	// Its presence means "unavailable". An empty value is never found, so
	// such a target always reads as in stock.
	OutOfStockText string `yaml:"outOfStockText" json:"outOfStockText"`

	// Description is the first line of the restock notification.
	Description string `yaml:"description" json:"description"`
}

// ValidateTargets rejects an empty registry, blank or duplicate ids and
// blank urls.
func ValidateTargets(targets []Target) error {
	if len(targets) == 0 {
		return fmt.Errorf("no targets configured")
	}

	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		id := strings.TrimSpace(t.ID)
		if id == "" {
			return fmt.Errorf("target #%d: id is required", i+1)
		}
		if seen[id] {
			return fmt.Errorf("target %q: duplicate id", id)
		}
		seen[id] = true

		if strings.TrimSpace(t.URL) == "" {
			return fmt.Errorf("target %q: url is required", id)
		}
	}
	return nil
}

// DisplayName falls back to the id when no name is configured.
func (t Target) DisplayName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}
