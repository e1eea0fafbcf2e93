// Package palette defines the color value used throughout the pipeline and the
// perceptual operations on it.
//
// # Color Representation
//
// A Color is an 8-bit sRGB triple in R, G, B order. This is the only channel
// order used inside the module; transports convert at their boundary. On the
// wire a Color is the JSON array [r, g, b].
//
// For perceptual work a Color converts to CIELAB (D65 white point) in the
// conventional scale: L from 0 to 100, a and b roughly -128 to 127.
//
// # Color Difference
//
// Distance implements CIEDE2000. It corrects CIELAB for non-uniform human
// sensitivity across lightness, chroma and hue, with a chroma/hue interaction
// term and a rotation term for the blue region. Typical readings:
//   - 0: identical
//   - below 1: not perceptible
//   - 2 to 10: perceptible at a glance
//   - above 50: roughly opposite colors
//
// # Deduplication
//
// Dedupe keeps the first color of every group of near-identical colors. It is a
// greedy, order-dependent filter and not a clustering step: the caller decides
// the order, typically the order in which a clustering algorithm reported its
// centroids.
package palette
