package features

// SpotifyExtractor reads recently-played track records. Expected fields per
// record (all optional): "genres" ([]string), "artist" (string), "energy",
// "valence", "danceability" (floats already in [0,1]).
type SpotifyExtractor struct{}

func NewSpotifyExtractor() *SpotifyExtractor { return &SpotifyExtractor{} }

func (SpotifyExtractor) Platform() string { return "spotify" }

const (
	spotifyGenreCap          = 30
	spotifyArtistCap         = 50
	spotifyEnergyVarianceCap = 0.08
)

func (SpotifyExtractor) Extract(records []map[string]any) []Feature {
	if len(records) == 0 {
		return nil
	}

	genres := map[string]bool{}
	artists := map[string]bool{}
	var energies, valences, dance []float64
	for _, rec := range records {
		for _, g := range strSliceField(rec, "genres") {
			genres[g] = true
		}
		if a, ok := strField(rec, "artist"); ok {
			artists[a] = true
		}
		if v, ok := numField(rec, "energy"); ok {
			energies = append(energies, clamp01(v))
		}
		if v, ok := numField(rec, "valence"); ok {
			valences = append(valences, clamp01(v))
		}
		if v, ok := numField(rec, "danceability"); ok {
			dance = append(dance, clamp01(v))
		}
	}

	var out []Feature
	if len(genres) > 0 {
		out = append(out, Feature{
			Name:  "genre_diversity",
			Value: ratio(float64(len(genres)), spotifyGenreCap),
			RawValue: map[string]any{
				"distinct_genres": float64(len(genres)),
				"track_count":     float64(len(records)),
			},
		})
	}
	if len(artists) > 0 {
		out = append(out, Feature{
			Name:  "artist_diversity",
			Value: ratio(float64(len(artists)), spotifyArtistCap),
			RawValue: map[string]any{
				"distinct_artists": float64(len(artists)),
				"track_count":      float64(len(records)),
			},
		})
	}
	if len(energies) > 0 {
		out = append(out, Feature{
			Name:  "energy_preference",
			Value: meanOf(energies),
			RawValue: map[string]any{
				"mean_energy": meanOf(energies),
				"track_count": float64(len(energies)),
			},
		})
		out = append(out, Feature{
			Name:  "listening_consistency",
			Value: consistencyScore(energies, spotifyEnergyVarianceCap),
			RawValue: map[string]any{
				"energy_variance": varianceOf(energies),
				"track_count":     float64(len(energies)),
			},
		})
	}
	if len(valences) > 0 {
		out = append(out, Feature{
			Name:  "valence_preference",
			Value: meanOf(valences),
			RawValue: map[string]any{
				"mean_valence": meanOf(valences),
				"track_count":  float64(len(valences)),
			},
		})
	}
	if len(dance) > 0 {
		out = append(out, Feature{
			Name:  "danceability_preference",
			Value: meanOf(dance),
			RawValue: map[string]any{
				"mean_danceability": meanOf(dance),
				"track_count":       float64(len(dance)),
			},
		})
	}
	return out
}
