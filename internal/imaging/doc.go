// Package imaging handles image I/O and inspection around the palette
// pipeline.
//
// It decodes uploads and files, normalises them into the opaque NRGBA form
// the pipeline works on, encodes results as base64 PNG for transport, and
// describes colours in the formats people use (hex, RGB, HSL, CIELAB).
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with the origin at the
// top-left corner:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive
//
// # Supported Formats
//
// PNG, JPEG and GIF through the standard library, plus WebP, BMP and TIFF
// through golang.org/x/image. JPEG and TIFF files carrying an EXIF
// orientation tag are rotated upright while decoding.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other functions are
// stateless and never modify their input images.
//
// # Error Handling
//
// Input that cannot be decoded as an image yields an error wrapping
// ErrNotImage, so transports can tell bad input from I/O failures with
// errors.Is.
package imaging
