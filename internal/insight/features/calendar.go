package features

// CalendarExtractor reads calendar event records covering roughly one week.
// Expected fields per record: "start_hour" (0-23), "attendee_count",
// "duration_minutes".
type CalendarExtractor struct{}

func NewCalendarExtractor() *CalendarExtractor { return &CalendarExtractor{} }

func (CalendarExtractor) Platform() string { return "calendar" }

const (
	calendarEventCap         = 40
	calendarHourVarianceCap  = 0.03
	calendarLongMeetingFloor = 45
)

func (CalendarExtractor) Extract(records []map[string]any) []Feature {
	if len(records) == 0 {
		return nil
	}

	var startHours []float64
	social := 0
	withAttendees := 0
	long := 0
	withDuration := 0
	for _, rec := range records {
		if h, ok := numField(rec, "start_hour"); ok && h >= 0 && h < 24 {
			startHours = append(startHours, h/24)
		}
		if a, ok := numField(rec, "attendee_count"); ok {
			withAttendees++
			if a >= 2 {
				social++
			}
		}
		if d, ok := numField(rec, "duration_minutes"); ok {
			withDuration++
			if d >= calendarLongMeetingFloor {
				long++
			}
		}
	}

	out := []Feature{{
		Name:  "meeting_density",
		Value: ratio(float64(len(records)), calendarEventCap),
		RawValue: map[string]any{
			"event_count": float64(len(records)),
		},
	}}
	if withAttendees > 0 {
		out = append(out, Feature{
			Name:  "social_event_ratio",
			Value: clamp01(float64(social) / float64(withAttendees)),
			RawValue: map[string]any{
				"social_events": float64(social),
				"event_count":   float64(withAttendees),
			},
		})
	}
	if len(startHours) > 0 {
		out = append(out, Feature{
			Name:  "schedule_consistency",
			Value: consistencyScore(startHours, calendarHourVarianceCap),
			RawValue: map[string]any{
				"start_hour_variance": varianceOf(startHours),
				"event_count":         float64(len(startHours)),
			},
		})
	}
	if withDuration > 0 {
		out = append(out, Feature{
			Name:  "long_meeting_ratio",
			Value: clamp01(float64(long) / float64(withDuration)),
			RawValue: map[string]any{
				"long_meetings": float64(long),
				"event_count":   float64(withDuration),
			},
		})
	}
	return out
}
