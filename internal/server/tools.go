package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, bit depth and file size. The decoded image is cached for later calls on the same path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"reload": map[string]interface{}{
						"type":        "boolean",
						"description": "Drop any cached copy and decode the file again, for files changed on disk (default: false)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color of a single pixel as hex, RGB, HSL and CIE Lab, including its alpha.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based)",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},

		// Subject Palette
		{
			Name:        "palette_extract",
			Description: "Separate the image's subject from its background and return the subject's dominant colors. Near-identical colors are merged using the CIEDE2000 color difference.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"k": map[string]interface{}{
						"type":        "integer",
						"description": "Number of colors to cluster before merging (1-16). Defaults to the configured value.",
						"minimum":     1,
						"maximum":     16,
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "CIEDE2000 distance at or below which two colors are considered the same. Default 10",
					},
					"include_image": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the segmented image as base64 PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_segment",
			Description: "Blank out the background of an image and return the result as base64-encoded PNG. Reports whether segmentation succeeded or fell back to the original image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop_subject",
			Description: "Segment an image and crop it to the bounding box of its subject. Returns the crop as base64-encoded PNG together with its position in the source.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Pixels to add around the subject on every side. Default 0",
						"default":     0,
					},
				},
				"required": []string{"path"},
			},
		},

		// Color Math
		{
			Name:        "color_distance",
			Description: "Compute the CIEDE2000 difference between two hex colors on a 0-100 scale.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"color1": map[string]interface{}{
						"type":        "string",
						"description": "First color, e.g. \"#ff8800\" or \"f80\"",
					},
					"color2": map[string]interface{}{
						"type":        "string",
						"description": "Second color",
					},
				},
				"required": []string{"color1", "color2"},
			},
		},
		{
			Name:        "palette_dedupe",
			Description: "Drop every color that is within the threshold of an earlier kept color. Order is preserved.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"colors": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Hex colors in priority order",
					},
					"threshold": map[string]interface{}{
						"type":        "number",
						"description": "CIEDE2000 distance at or below which two colors are considered the same. Default 10",
					},
				},
				"required": []string{"colors"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
