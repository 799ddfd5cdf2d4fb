// Package catalog is the static, build-time list of substitutable sounds and
// the bundled presets available for each of them.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/remowork/soundswap/internal/domain"
)

// Catalog indexes sound types and presets.
type Catalog struct {
	entries []domain.SoundCatalogEntry
	presets []domain.PresetEntry
	byID    map[domain.SoundID]int
}

// New builds a catalog from entries and presets. Call Validate before use
// with caller-supplied data.
func New(entries []domain.SoundCatalogEntry, presets []domain.PresetEntry) *Catalog {
	c := &Catalog{
		entries: slices.Clone(entries),
		presets: slices.Clone(presets),
		byID:    make(map[domain.SoundID]int, len(entries)),
	}
	for i, e := range c.entries {
		c.byID[e.ID] = i
	}
	return c
}

// Default returns the compiled-in catalog for the Remowork web application.
func Default() *Catalog {
	return New(defaultEntries, defaultPresets)
}

// Entries returns every sound type in catalog order.
func (c *Catalog) Entries() []domain.SoundCatalogEntry {
	out := make([]domain.SoundCatalogEntry, len(c.entries))
	for i, e := range c.entries {
		e.MatchPaths = slices.Clone(e.MatchPaths)
		out[i] = e
	}
	return out
}

// Entry looks up a sound type.
func (c *Catalog) Entry(id domain.SoundID) (domain.SoundCatalogEntry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.SoundCatalogEntry{}, false
	}
	e := c.entries[i]
	e.MatchPaths = slices.Clone(e.MatchPaths)
	return e, true
}

// Has reports whether id is a known sound type.
func (c *Catalog) Has(id domain.SoundID) bool {
	_, ok := c.byID[id]
	return ok
}

// Presets returns every preset in catalog order.
func (c *Catalog) Presets() []domain.PresetEntry {
	return slices.Clone(c.presets)
}

// PresetsFor returns the presets of one category.
func (c *Catalog) PresetsFor(category domain.SoundID) []domain.PresetEntry {
	var out []domain.PresetEntry
	for _, p := range c.presets {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Preset looks up a preset by category and id.
func (c *Catalog) Preset(category domain.SoundID, presetID string) (domain.PresetEntry, bool) {
	for _, p := range c.presets {
		if p.Category == category && p.PresetID == presetID {
			return p, true
		}
	}
	return domain.PresetEntry{}, false
}

// Validate checks the catalog invariants: unique ids, non-empty rooted match
// paths, presets belonging to a known category, and silence offered only by
// auxiliary categories.
func (c *Catalog) Validate() error {
	seen := make(map[domain.SoundID]bool, len(c.entries))
	for _, e := range c.entries {
		if e.ID == "" {
			return fmt.Errorf("catalog entry with empty id")
		}
		if seen[e.ID] {
			return fmt.Errorf("duplicate catalog entry %q", e.ID)
		}
		seen[e.ID] = true

		if len(e.MatchPaths) == 0 {
			return fmt.Errorf("catalog entry %q has no match paths", e.ID)
		}
		for _, p := range e.MatchPaths {
			if !strings.HasPrefix(p, "/") {
				return fmt.Errorf("catalog entry %q match path %q must start with /", e.ID, p)
			}
		}
	}

	presetKeys := make(map[string]bool, len(c.presets))
	for _, p := range c.presets {
		entry, ok := c.Entry(p.Category)
		if !ok {
			return fmt.Errorf("preset %q references unknown category %q", p.PresetID, p.Category)
		}
		key := string(p.Category) + "/" + p.PresetID
		if presetKeys[key] {
			return fmt.Errorf("duplicate preset %q in category %q", p.PresetID, p.Category)
		}
		presetKeys[key] = true

		if p.IsSilence() && !entry.Auxiliary {
			return fmt.Errorf("silence preset %q not allowed for primary sound %q", p.PresetID, p.Category)
		}
		if !p.IsSilence() && *p.FileName == "" {
			return fmt.Errorf("preset %q has an empty file name", p.PresetID)
		}
	}

	return nil
}
