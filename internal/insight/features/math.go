package features

// Normalization helpers shared by the platform extractors.

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ratio normalizes a count against a cap, clamped to [0,1].
func ratio(count float64, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	return clamp01(count / cap)
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func varianceOf(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	m := meanOf(vals)
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(vals))
}

// consistencyScore maps variance onto [0,1]: lower variance means higher
// consistency. scale is tuned per feature so typical real-world variance
// lands mid-range.
func consistencyScore(vals []float64, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	v := 1 - varianceOf(vals)/scale
	if v < 0 {
		return 0
	}
	return clamp01(v)
}

// numField reads a numeric record field, tolerating the types JSON decoding
// produces.
func numField(rec map[string]any, key string) (float64, bool) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func strField(rec map[string]any, key string) (string, bool) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return "", false
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func strSliceField(rec map[string]any, key string) []string {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
