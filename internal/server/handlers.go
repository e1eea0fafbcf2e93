package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/subject-palette/internal/imaging"
	"github.com/ironsheep/subject-palette/internal/palette"
	"github.com/ironsheep/subject-palette/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "palette_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramError marks a tool failure caused by the caller's arguments.
type paramError struct {
	err error
}

func (e *paramError) Error() string { return e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{err: fmt.Errorf(format, args...)}
}

// decodeArgs unmarshals tool arguments, reporting failures as bad params.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &paramError{err: err}
	}
	return nil
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Argument errors return code -32602; any other tool error returns -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
		}
		s.logger.Debug("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, CodeToolFailure, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_sample_color":
		return s.handleImageSampleColor(args)

	// Subject Palette
	case "palette_extract":
		return s.handlePaletteExtract(args)
	case "image_segment":
		return s.handleImageSegment(args)
	case "image_crop_subject":
		return s.handleImageCropSubject(args)

	// Color Math
	case "color_distance":
		return s.handleColorDistance(args)
	case "palette_dedupe":
		return s.handlePaletteDedupe(args)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func requirePath(path string) error {
	if path == "" {
		return invalidParams("path is required")
	}
	return nil
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path   string `json:"path"`
	Reload bool   `json:"reload"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Reload {
		s.cache.Evict(a.Path)
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

type imageSampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleImageSampleColor(args json.RawMessage) (interface{}, error) {
	var a imageSampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SampleColor(img, a.X, a.Y)
}

// === Subject Palette Handlers ===

type paletteExtractArgs struct {
	Path         string   `json:"path"`
	K            *int     `json:"k"`
	Threshold    *float64 `json:"threshold"`
	IncludeImage bool     `json:"include_image"`
}

// PaletteExtractResult is the result of the palette_extract tool.
type PaletteExtractResult struct {
	Colors          []imaging.ColorResult `json:"colors"`
	Refined         bool                  `json:"segmentation_refined"`
	FallbackReason  string                `json:"fallback_reason,omitempty"`
	ForegroundRatio float64               `json:"foreground_ratio"`
	Warning         string                `json:"warning,omitempty"`
	ImageBase64     string                `json:"segmented_image_base64,omitempty"`
	MimeType        string                `json:"mime_type,omitempty"`
}

func (s *Server) handlePaletteExtract(args json.RawMessage) (interface{}, error) {
	var a paletteExtractArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}

	var opts []pipeline.Option
	if a.K != nil {
		if maxK := s.pipeline.MaxClusters(); *a.K < 1 || *a.K > maxK {
			return nil, invalidParams("k must be between 1 and %d, got %d", maxK, *a.K)
		}
		opts = append(opts, pipeline.WithClusterCount(*a.K))
	}
	if a.Threshold != nil {
		if err := checkThreshold(*a.Threshold); err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithThreshold(*a.Threshold))
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := s.pipeline.Process(img, opts...)
	if err != nil {
		return nil, err
	}

	out := &PaletteExtractResult{
		Colors:          imaging.DescribeAll(res.Palette),
		Refined:         res.Refined,
		FallbackReason:  res.FallbackReason,
		ForegroundRatio: res.ForegroundRatio,
	}
	if res.EmptyForeground {
		out.Warning = "no foreground pixels remained after segmentation"
	}
	if a.IncludeImage {
		encoded, err := imaging.EncodePNGBase64(res.Segmented)
		if err != nil {
			return nil, fmt.Errorf("failed to encode segmented image: %w", err)
		}
		out.ImageBase64 = encoded
		out.MimeType = imaging.PNGMimeType
	}
	return out, nil
}

// SegmentResult is the result of the image_segment tool.
type SegmentResult struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Refined        bool   `json:"segmentation_refined"`
	FallbackReason string `json:"fallback_reason,omitempty"`
	ImageBase64    string `json:"image_base64"`
	MimeType       string `json:"mime_type"`
}

func (s *Server) handleImageSegment(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	seg := s.pipeline.Segment(img)
	encoded, err := imaging.EncodePNGBase64(seg.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segmented image: %w", err)
	}
	out := &SegmentResult{
		Width:       seg.Image.Bounds().Dx(),
		Height:      seg.Image.Bounds().Dy(),
		Refined:     seg.Refined(),
		ImageBase64: encoded,
		MimeType:    imaging.PNGMimeType,
	}
	if seg.Err != nil {
		out.FallbackReason = seg.Err.Error()
	}
	return out, nil
}

type imageCropSubjectArgs struct {
	Path    string `json:"path"`
	Padding int    `json:"padding"`
}

func (s *Server) handleImageCropSubject(args json.RawMessage) (interface{}, error) {
	var a imageCropSubjectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := requirePath(a.Path); err != nil {
		return nil, err
	}
	if a.Padding < 0 {
		return nil, invalidParams("padding must not be negative, got %d", a.Padding)
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.CropToSubject(s.pipeline.Segment(img).Image, a.Padding)
}

// === Color Math Handlers ===

type colorDistanceArgs struct {
	Color1 string `json:"color1"`
	Color2 string `json:"color2"`
}

// ColorDistanceResult is the result of the color_distance tool.
type ColorDistanceResult struct {
	Color1   string  `json:"color1"`
	Color2   string  `json:"color2"`
	DeltaE   float64 `json:"delta_e"`
	Distinct bool    `json:"distinct"`
}

func (s *Server) handleColorDistance(args json.RawMessage) (interface{}, error) {
	var a colorDistanceArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	c1, err := palette.ParseHex(a.Color1)
	if err != nil {
		return nil, &paramError{err: fmt.Errorf("color1: %w", err)}
	}
	c2, err := palette.ParseHex(a.Color2)
	if err != nil {
		return nil, &paramError{err: fmt.Errorf("color2: %w", err)}
	}

	d := palette.Distance(c1, c2)
	return &ColorDistanceResult{
		Color1:   c1.Hex(),
		Color2:   c2.Hex(),
		DeltaE:   math.Round(d*1000) / 1000,
		Distinct: d > palette.DefaultThreshold,
	}, nil
}

type paletteDedupeArgs struct {
	Colors    []string `json:"colors"`
	Threshold *float64 `json:"threshold"`
}

// PaletteDedupeResult is the result of the palette_dedupe tool.
type PaletteDedupeResult struct {
	Colors  []string `json:"colors"`
	Removed int      `json:"removed"`
}

func (s *Server) handlePaletteDedupe(args json.RawMessage) (interface{}, error) {
	var a paletteDedupeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	threshold := palette.DefaultThreshold
	if a.Threshold != nil {
		if err := checkThreshold(*a.Threshold); err != nil {
			return nil, err
		}
		threshold = *a.Threshold
	}

	colors := make([]palette.Color, 0, len(a.Colors))
	for i, h := range a.Colors {
		c, err := palette.ParseHex(h)
		if err != nil {
			return nil, &paramError{err: fmt.Errorf("colors[%d]: %w", i, err)}
		}
		colors = append(colors, c)
	}

	kept := palette.Dedupe(colors, threshold)
	out := &PaletteDedupeResult{
		Colors:  make([]string, len(kept)),
		Removed: len(colors) - len(kept),
	}
	for i, c := range kept {
		out.Colors[i] = c.Hex()
	}
	return out, nil
}

func checkThreshold(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
		return invalidParams("threshold must be a non-negative number, got %g", t)
	}
	return nil
}
