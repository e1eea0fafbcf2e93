// Package segment separates a single dominant subject from its background.
//
// A coarse seed mask is produced by thresholding pixel intensity: bright
// pixels seed the foreground, dark pixels the background. Inside a region of
// interest inset from the image edges those seeds are only probable, and a
// GrabCut-style refinement moves them between foreground and background:
// each round fits Gaussian mixture colour models to both sides and solves a
// minimum s/t cut over the pixel grid.
//
// Refinement never fails the caller. Segment always returns an image with the
// input's dimensions; when refinement cannot run (image too small for the
// region of interest, a seed mask holding a single label, numerical trouble)
// the result carries a copy of the input and the reason in Segmentation.Err.
//
// # Output
//
// Pixels labelled background (definite or probable) are set to exactly
// (0, 0, 0). Foreground pixels keep their original colour.
package segment
