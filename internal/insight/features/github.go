package features

// GitHubExtractor reads commit records. Expected fields per record:
// "repo" (string), "committed_hour" (0-23), "message" (string).
type GitHubExtractor struct{}

func NewGitHubExtractor() *GitHubExtractor { return &GitHubExtractor{} }

func (GitHubExtractor) Platform() string { return "github" }

const (
	githubRepoCap          = 10
	githubVolumeCap        = 100
	githubHourVarianceCap  = 0.04
	githubMessageLengthCap = 72
)

func (GitHubExtractor) Extract(records []map[string]any) []Feature {
	if len(records) == 0 {
		return nil
	}

	repos := map[string]bool{}
	var hours []float64
	var msgLens []float64
	for _, rec := range records {
		if r, ok := strField(rec, "repo"); ok {
			repos[r] = true
		}
		if h, ok := numField(rec, "committed_hour"); ok && h >= 0 && h < 24 {
			hours = append(hours, h/24)
		}
		if m, ok := strField(rec, "message"); ok {
			msgLens = append(msgLens, clamp01(float64(len(m))/githubMessageLengthCap))
		}
	}

	var out []Feature
	out = append(out, Feature{
		Name:  "activity_volume",
		Value: ratio(float64(len(records)), githubVolumeCap),
		RawValue: map[string]any{
			"commit_count": float64(len(records)),
		},
	})
	if len(repos) > 0 {
		out = append(out, Feature{
			Name:  "repo_diversity",
			Value: ratio(float64(len(repos)), githubRepoCap),
			RawValue: map[string]any{
				"distinct_repos": float64(len(repos)),
				"commit_count":   float64(len(records)),
			},
		})
	}
	if len(hours) > 0 {
		out = append(out, Feature{
			Name:  "commit_regularity",
			Value: consistencyScore(hours, githubHourVarianceCap),
			RawValue: map[string]any{
				"hour_variance": varianceOf(hours),
				"commit_count":  float64(len(hours)),
			},
		})
	}
	if len(msgLens) > 0 {
		out = append(out, Feature{
			Name:  "message_thoroughness",
			Value: meanOf(msgLens),
			RawValue: map[string]any{
				"mean_message_ratio": meanOf(msgLens),
				"commit_count":       float64(len(msgLens)),
			},
		})
	}
	return out
}
