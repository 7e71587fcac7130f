package maintenance

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/ukydev/carmemo/internal/models"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
)

// EventUnmappedCategory fires when a category string resolves to Other
// without matching anything.
const EventUnmappedCategory = hookz.Key("category.unmapped")

// maxFuzzyDistance is the largest edit distance still treated as a typo.
const maxFuzzyDistance = 2

// UnmappedCategory describes a category string no canonical category matched.
type UnmappedCategory struct {
	Raw        string
	Normalized string
	ObservedAt time.Time
}

type categoryFragment struct {
	fragment string
	category models.Category
}

// Checked in order; "oil" must come before anything an oil-related title
// could also contain.
var categoryFragments = []categoryFragment{
	{"oil", models.CategoryOilChange},
	{"tire", models.CategoryTireRotation},
	{"tyre", models.CategoryTireRotation},
	{"brake", models.CategoryBrakeService},
	{"filter", models.CategoryAirFilter},
	{"battery", models.CategoryBatteryService},
	{"fluid", models.CategoryFluidCheck},
	{"coolant", models.CategoryFluidCheck},
	{"inspect", models.CategoryInspection},
}

var normalizedCanonical = func() []string {
	out := make([]string, len(models.CanonicalCategories))
	for i, c := range models.CanonicalCategories {
		out[i] = normalizeCategory(c.DisplayName())
	}
	return out
}()

// normalizeCategory lowercases s and drops every non-alphanumeric rune.
func normalizeCategory(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, s)
}

// MapCategory maps free text onto a canonical category without emitting events.
func MapCategory(raw string) models.Category {
	c, _ := matchCategory(raw)
	return c
}

// matchCategory returns the mapped category and whether any rule matched.
func matchCategory(raw string) (models.Category, bool) {
	if strings.TrimSpace(raw) == "" {
		return models.CategoryOther, true
	}
	norm := normalizeCategory(raw)
	if norm == "" {
		return models.CategoryOther, false
	}

	for i, canon := range normalizedCanonical {
		if norm == canon {
			return models.CanonicalCategories[i], true
		}
	}

	best, bestDist := -1, maxFuzzyDistance+1
	for i, canon := range normalizedCanonical {
		if d := levenshtein.ComputeDistance(norm, canon); d < bestDist {
			best, bestDist = i, d
		}
	}
	if best >= 0 {
		return models.CanonicalCategories[best], true
	}

	for _, f := range categoryFragments {
		if strings.Contains(norm, f.fragment) {
			return f.category, true
		}
	}
	return models.CategoryOther, false
}

// CategoryMapper maps free-text categories and, when enabled, reports the
// ones it could not place so the taxonomy can be curated.
type CategoryMapper struct {
	hooks        *hookz.Hooks[UnmappedCategory]
	emitUnmapped bool
	clock        clockz.Clock
}

// NewCategoryMapper creates a mapper. emitUnmapped is meant for non-production
// environments.
func NewCategoryMapper(emitUnmapped bool) *CategoryMapper {
	return &CategoryMapper{
		hooks:        hookz.New[UnmappedCategory](),
		emitUnmapped: emitUnmapped,
		clock:        clockz.RealClock,
	}
}

// Map returns the canonical category for raw. A nil mapper behaves like MapCategory.
func (m *CategoryMapper) Map(ctx context.Context, raw string) models.Category {
	c, matched := matchCategory(raw)
	if m == nil || matched || !m.emitUnmapped {
		return c
	}
	// Handlers run asynchronously and must outlive the request.
	_ = m.hooks.Emit(context.WithoutCancel(ctx), EventUnmappedCategory, UnmappedCategory{ //nolint:errcheck
		Raw:        raw,
		Normalized: normalizeCategory(raw),
		ObservedAt: m.clock.Now(),
	})
	return c
}

// OnUnmapped registers a handler for unmapped category observations.
func (m *CategoryMapper) OnUnmapped(handler func(context.Context, UnmappedCategory) error) error {
	_, err := m.hooks.Hook(EventUnmappedCategory, handler)
	return err
}

// Close stops event delivery.
func (m *CategoryMapper) Close() {
	if m != nil {
		m.hooks.Close()
	}
}
