package evidence

import (
	"fmt"
	"math"
	"strings"

	"github.com/echolabs/twinsight-backend/internal/insight/correlations"
	"github.com/echolabs/twinsight-backend/internal/insight/features"
	pkgerrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"
)

// Record is one human-readable piece of trait evidence, derived from a
// single feature/dimension correlation.
type Record struct {
	Platform    string         `json:"platform"`
	Feature     string         `json:"feature"`
	Dimension   string         `json:"dimension"`
	Value       float64        `json:"value"`
	RawValue    map[string]any `json:"raw_value,omitempty"`
	Correlation float64        `json:"correlation"`
	EffectSize  string         `json:"effect_size"`
	Description string         `json:"description"`
	Citation    string         `json:"citation"`
	Impact      float64        `json:"impact"`
}

// Generator turns extracted features into evidence records using the
// correlation table's text templates. Pure, no I/O.
type Generator struct {
	table *correlations.Table
}

// NewGenerator fails closed when the table is absent or empty.
func NewGenerator(table *correlations.Table) (*Generator, error) {
	if table == nil || table.Len() == 0 {
		return nil, pkgerrors.ErrTableNotLoaded
	}
	return &Generator{table: table}, nil
}

// Generate produces one record per correlated dimension of the feature.
// A feature value at or above the entry threshold reads as "high" (>=, not >).
// Entries without a template for the determined level are skipped: partial
// template coverage deliberately reduces evidence output instead of erroring.
func (g *Generator) Generate(platform string, f features.Feature) []Record {
	entries := g.table.Lookup(platform, f.Name)
	if len(entries) == 0 {
		return nil
	}

	var out []Record
	for _, entry := range entries {
		template := entry.TemplateLow
		if f.Value >= entry.Threshold {
			template = entry.TemplateHigh
		}
		if template == "" {
			continue
		}
		out = append(out, Record{
			Platform:    platform,
			Feature:     f.Name,
			Dimension:   entry.Dimension,
			Value:       f.Value,
			RawValue:    f.RawValue,
			Correlation: entry.R,
			EffectSize:  entry.EffectSize,
			Description: interpolate(template, f.RawValue),
			Citation:    g.table.Citation(entry),
			Impact:      math.Abs(f.Value-0.5) * 2 * math.Abs(entry.R),
		})
	}
	return out
}

// interpolate replaces {key} placeholders with formatted raw values. Numeric
// values below 1 render with two decimals, values at or above 1 as grouped
// integers.
func interpolate(template string, raw map[string]any) string {
	if len(raw) == 0 || !strings.Contains(template, "{") {
		return template
	}
	out := template
	for key, val := range raw {
		placeholder := "{" + key + "}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		out = strings.ReplaceAll(out, placeholder, formatRawValue(val))
	}
	return out
}

func formatRawValue(val any) string {
	switch v := val.(type) {
	case float64:
		return formatNumber(v)
	case float32:
		return formatNumber(float64(v))
	case int:
		return formatNumber(float64(v))
	case int64:
		return formatNumber(float64(v))
	case string:
		return v
	}
	return fmt.Sprintf("%v", val)
}

func formatNumber(v float64) string {
	if math.Abs(v) < 1 {
		return fmt.Sprintf("%.2f", v)
	}
	return groupInt(int64(math.Round(v)))
}

func groupInt(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		s = "-" + s
	}
	return s
}
