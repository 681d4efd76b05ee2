package features

// YouTubeExtractor reads watch-history records. Expected fields per record:
// "category" (string), "watched_hour" (0-23), "duration_seconds".
type YouTubeExtractor struct{}

func NewYouTubeExtractor() *YouTubeExtractor { return &YouTubeExtractor{} }

func (YouTubeExtractor) Platform() string { return "youtube" }

const (
	youtubeCategoryCap     = 15
	youtubeHourVarianceCap = 0.04
)

var educationalCategories = map[string]bool{
	"Education":            true,
	"Science & Technology": true,
	"Howto & Style":        true,
	"News & Politics":      true,
}

func (YouTubeExtractor) Extract(records []map[string]any) []Feature {
	if len(records) == 0 {
		return nil
	}

	categories := map[string]bool{}
	educational := 0
	categorized := 0
	var hours []float64
	for _, rec := range records {
		if c, ok := strField(rec, "category"); ok {
			categories[c] = true
			categorized++
			if educationalCategories[c] {
				educational++
			}
		}
		if h, ok := numField(rec, "watched_hour"); ok && h >= 0 && h < 24 {
			hours = append(hours, h/24)
		}
	}

	var out []Feature
	if len(categories) > 0 {
		out = append(out, Feature{
			Name:  "category_diversity",
			Value: ratio(float64(len(categories)), youtubeCategoryCap),
			RawValue: map[string]any{
				"distinct_categories": float64(len(categories)),
				"video_count":         float64(len(records)),
			},
		})
	}
	if categorized > 0 {
		out = append(out, Feature{
			Name:  "educational_ratio",
			Value: clamp01(float64(educational) / float64(categorized)),
			RawValue: map[string]any{
				"educational_videos": float64(educational),
				"video_count":        float64(categorized),
			},
		})
	}
	if len(hours) > 0 {
		out = append(out, Feature{
			Name:  "viewing_regularity",
			Value: consistencyScore(hours, youtubeHourVarianceCap),
			RawValue: map[string]any{
				"hour_variance": varianceOf(hours),
				"video_count":   float64(len(hours)),
			},
		})
	}
	return out
}
