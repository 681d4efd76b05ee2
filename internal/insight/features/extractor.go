package features

// Feature is one normalized behavioral signal extracted from raw platform
// records. Value is always in [0,1]; RawValue carries the unnormalized
// numbers used for evidence text.
type Feature struct {
	Name     string         `json:"name"`
	Value    float64        `json:"value"`
	RawValue map[string]any `json:"raw_value,omitempty"`
}

// Extractor turns raw platform records into normalized features. Extractors
// are pure and total: malformed records degrade to omitted features and empty
// input yields an empty feature list, never an error.
type Extractor interface {
	Platform() string
	Extract(records []map[string]any) []Feature
}

// Registry dispatches by platform identifier. Adding a platform means
// registering a new Extractor implementation.
type Registry struct {
	extractors map[string]Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{extractors: make(map[string]Extractor, len(extractors))}
	for _, e := range extractors {
		r.extractors[e.Platform()] = e
	}
	return r
}

// DefaultRegistry wires every built-in platform extractor.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewSpotifyExtractor(),
		NewYouTubeExtractor(),
		NewGitHubExtractor(),
		NewCalendarExtractor(),
		NewWearableExtractor(),
	)
}

func (r *Registry) Get(platform string) (Extractor, bool) {
	e, ok := r.extractors[platform]
	return e, ok
}

func (r *Registry) Platforms() []string {
	out := make([]string, 0, len(r.extractors))
	for p := range r.extractors {
		out = append(out, p)
	}
	return out
}

// Extract runs the registered extractor for platform. Unknown platforms and
// empty inputs return an empty list so callers can treat "no signal" and
// "unsupported" uniformly as skips.
func (r *Registry) Extract(platform string, records []map[string]any) []Feature {
	e, ok := r.extractors[platform]
	if !ok || len(records) == 0 {
		return nil
	}
	return e.Extract(records)
}
