package palette

// DefaultThreshold is the ΔE below or at which two palette colors count as the
// same color.
const DefaultThreshold = 10.0

// Dedupe filters colors down to a perceptually distinct subsequence.
//
// Colors are visited in order. A color is kept only if its Distance to every
// color kept so far is strictly greater than threshold; otherwise it is
// dropped. The result preserves input order and Dedupe(Dedupe(x)) equals
// Dedupe(x). The input slice is not modified.
func Dedupe(colors []Color, threshold float64) []Color {
	kept := make([]Color, 0, len(colors))
	for _, c := range colors {
		if distinctFromAll(c, kept, threshold) {
			kept = append(kept, c)
		}
	}
	return kept
}

func distinctFromAll(c Color, kept []Color, threshold float64) bool {
	for _, k := range kept {
		if Distance(c, k) <= threshold {
			return false
		}
	}
	return true
}
