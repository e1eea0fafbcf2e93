package palette

// deltaEScale converts go-colorful's unit-range CIEDE2000 to conventional ΔE.
const deltaEScale = 100.0

// Distance returns the CIEDE2000 color difference between a and b in
// conventional ΔE units. The result is non-negative, zero for identical colors
// and symmetric in its arguments.
func Distance(a, b Color) float64 {
	if a == b {
		return 0
	}
	return a.colorful().DistanceCIEDE2000(b.colorful()) * deltaEScale
}
