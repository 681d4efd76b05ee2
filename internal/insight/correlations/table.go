package correlations

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/echolabs/twinsight-backend/internal/pkg/errors"
	"github.com/echolabs/twinsight-backend/internal/types"
)

//go:embed data.yaml
var embeddedTable []byte

// Entry is one literature-sourced feature/dimension correlation. Entries are
// loaded once at startup and read-only afterwards.
type Entry struct {
	Platform     string
	Feature      string
	Dimension    string
	R            float64
	EffectSize   string
	SourceID     string
	TemplateHigh string
	TemplateLow  string
	Threshold    float64
}

type Source struct {
	Citation   string `yaml:"citation"`
	SampleSize int    `yaml:"sample_size"`
}

// Table is the static correlation knowledge base. Zero entries is a
// configuration error: estimation against an empty table would be
// indistinguishable from "no evidence".
type Table struct {
	Version string
	sources map[string]Source
	entries map[string][]Entry // key: platform + "\x00" + feature
}

type yamlCorrelation struct {
	Dimension    string  `yaml:"dimension"`
	R            float64 `yaml:"r"`
	EffectSize   string  `yaml:"effect_size"`
	Source       string  `yaml:"source"`
	TemplateHigh string  `yaml:"template_high"`
	TemplateLow  string  `yaml:"template_low"`
	Threshold    float64 `yaml:"threshold"`
}

type yamlEntry struct {
	Platform     string            `yaml:"platform"`
	Feature      string            `yaml:"feature"`
	Correlations []yamlCorrelation `yaml:"correlations"`
}

type yamlTable struct {
	Version string            `yaml:"version"`
	Sources map[string]Source `yaml:"sources"`
	Entries []yamlEntry       `yaml:"entries"`
}

// Load parses the embedded table. Any failure is fatal for the estimation
// and evidence paths (fail closed).
func Load() (*Table, error) {
	return LoadBytes(embeddedTable)
}

func LoadBytes(raw []byte) (*Table, error) {
	var doc yamlTable
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrTableNotLoaded, err)
	}
	if len(doc.Entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", pkgerrors.ErrTableNotLoaded)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("%w: missing version", pkgerrors.ErrTableNotLoaded)
	}

	validDims := map[string]bool{}
	for _, d := range types.Dimensions() {
		validDims[d] = true
	}
	validEffects := map[string]bool{"small": true, "medium": true, "large": true}

	t := &Table{
		Version: doc.Version,
		sources: doc.Sources,
		entries: make(map[string][]Entry),
	}
	for _, ye := range doc.Entries {
		if ye.Platform == "" || ye.Feature == "" {
			return nil, fmt.Errorf("%w: entry missing platform or feature", pkgerrors.ErrTableNotLoaded)
		}
		for _, c := range ye.Correlations {
			if !validDims[c.Dimension] {
				return nil, fmt.Errorf("%w: %s/%s: unknown dimension %q", pkgerrors.ErrTableNotLoaded, ye.Platform, ye.Feature, c.Dimension)
			}
			if c.R < -1 || c.R > 1 {
				return nil, fmt.Errorf("%w: %s/%s: r out of range: %v", pkgerrors.ErrTableNotLoaded, ye.Platform, ye.Feature, c.R)
			}
			if !validEffects[c.EffectSize] {
				return nil, fmt.Errorf("%w: %s/%s: unknown effect size %q", pkgerrors.ErrTableNotLoaded, ye.Platform, ye.Feature, c.EffectSize)
			}
			if _, ok := doc.Sources[c.Source]; !ok {
				return nil, fmt.Errorf("%w: %s/%s: unknown source %q", pkgerrors.ErrTableNotLoaded, ye.Platform, ye.Feature, c.Source)
			}
			threshold := c.Threshold
			if threshold == 0 {
				threshold = 0.5
			}
			key := entryKey(ye.Platform, ye.Feature)
			t.entries[key] = append(t.entries[key], Entry{
				Platform:     ye.Platform,
				Feature:      ye.Feature,
				Dimension:    c.Dimension,
				R:            c.R,
				EffectSize:   c.EffectSize,
				SourceID:     c.Source,
				TemplateHigh: c.TemplateHigh,
				TemplateLow:  c.TemplateLow,
				Threshold:    threshold,
			})
		}
	}
	return t, nil
}

func entryKey(platform, feature string) string { return platform + "\x00" + feature }

// Lookup returns every dimension correlation for a (platform, feature) pair.
// A nil result is normal: correlation coverage is expected to be partial.
func (t *Table) Lookup(platform, feature string) []Entry {
	if t == nil {
		return nil
	}
	return t.entries[entryKey(platform, feature)]
}

func (t *Table) Source(id string) (Source, bool) {
	s, ok := t.sources[id]
	return s, ok
}

// Citation formats the evidence citation string for an entry.
func (t *Table) Citation(e Entry) string {
	src, ok := t.sources[e.SourceID]
	if !ok {
		return e.SourceID
	}
	return fmt.Sprintf("%s (r=%.2f, n=%d)", src.Citation, e.R, src.SampleSize)
}

func (t *Table) Len() int {
	n := 0
	for _, es := range t.entries {
		n += len(es)
	}
	return n
}
