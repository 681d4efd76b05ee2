package features

// WearableExtractor reads daily summary records from a wearable. Expected
// fields per record: "sleep_start_hour" (0-23, may wrap past midnight),
// "sleep_minutes", "steps".
type WearableExtractor struct{}

func NewWearableExtractor() *WearableExtractor { return &WearableExtractor{} }

func (WearableExtractor) Platform() string { return "wearable" }

const (
	wearableSleepVarianceCap = 0.02
	wearableSleepTarget      = 480
	wearableStepsCap         = 15000
)

func (WearableExtractor) Extract(records []map[string]any) []Feature {
	if len(records) == 0 {
		return nil
	}

	var sleepStarts, sleepMinutes, steps []float64
	for _, rec := range records {
		if h, ok := numField(rec, "sleep_start_hour"); ok && h >= 0 && h < 24 {
			sleepStarts = append(sleepStarts, h/24)
		}
		if m, ok := numField(rec, "sleep_minutes"); ok && m > 0 {
			sleepMinutes = append(sleepMinutes, clamp01(m/wearableSleepTarget))
		}
		if s, ok := numField(rec, "steps"); ok && s >= 0 {
			steps = append(steps, clamp01(s/wearableStepsCap))
		}
	}

	var out []Feature
	if len(sleepStarts) > 0 {
		out = append(out, Feature{
			Name:  "sleep_consistency",
			Value: consistencyScore(sleepStarts, wearableSleepVarianceCap),
			RawValue: map[string]any{
				"bedtime_variance": varianceOf(sleepStarts),
				"night_count":      float64(len(sleepStarts)),
			},
		})
	}
	if len(sleepMinutes) > 0 {
		out = append(out, Feature{
			Name:  "sleep_sufficiency",
			Value: meanOf(sleepMinutes),
			RawValue: map[string]any{
				"mean_sleep_ratio": meanOf(sleepMinutes),
				"night_count":      float64(len(sleepMinutes)),
			},
		})
	}
	if len(steps) > 0 {
		out = append(out, Feature{
			Name:  "activity_level",
			Value: meanOf(steps),
			RawValue: map[string]any{
				"mean_step_ratio": meanOf(steps),
				"day_count":       float64(len(steps)),
			},
		})
	}
	return out
}
