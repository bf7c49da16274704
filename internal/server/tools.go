package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func coordinateProperties() map[string]interface{} {
	return map[string]interface{}{
		"x": map[string]interface{}{
			"type":        "number",
			"description": "X coordinate in canvas pixels (0 = left edge)",
		},
		"y": map[string]interface{}{
			"type":        "number",
			"description": "Y coordinate in canvas pixels (0 = top edge)",
		},
	}
}

func toolProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"enum":        []string{"pen", "eraser"},
		"description": "Drawing tool. The eraser is three times wider than the pen.",
	}
}

func widthProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"minimum":     1,
		"maximum":     20,
		"description": "Pen width in pixels (1-20). Default 3",
	}
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Strokes
		{
			Name:        "sketch_begin_stroke",
			Description: "Put the pen down at a point. Ignored if a stroke is already in progress.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": coordinateProperties(),
				"required":   []string{"x", "y"},
			},
		},
		{
			Name:        "sketch_extend_stroke",
			Description: "Draw a segment from the last stroke point to this point. Ignored when no stroke is in progress.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": coordinateProperties(),
				"required":   []string{"x", "y"},
			},
		},
		{
			Name:        "sketch_end_stroke",
			Description: "Lift the pen and return the padded bounding box of everything drawn, or null if the canvas is empty.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "sketch_stroke",
			Description: "Draw a complete stroke through a list of points and return the new bounding box. Optionally switches tool and width first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"points": map[string]interface{}{
						"type":        "array",
						"description": "Stroke points in drawing order",
						"items": map[string]interface{}{
							"type":       "object",
							"properties": coordinateProperties(),
							"required":   []string{"x", "y"},
						},
						"minItems": 1,
					},
					"tool":  toolProperty(),
					"width": widthProperty(),
				},
				"required": []string{"points"},
			},
		},

		// Surface state
		{
			Name:        "sketch_set_tool",
			Description: "Select the pen or eraser and/or change the pen width.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tool":  toolProperty(),
					"width": widthProperty(),
				},
			},
		},
		{
			Name:        "sketch_clear",
			Description: "Erase the whole canvas. Also drops the bounding box and any generated image.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "sketch_resize",
			Description: "Resize the canvas. The current drawing is discarded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "New canvas width in pixels",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "New canvas height in pixels",
					},
				},
				"required": []string{"width", "height"},
			},
		},
		{
			Name:        "sketch_bounding_box",
			Description: "Return the current bounding box of the drawing (20px padding, clamped to the canvas) and the canvas size.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "sketch_snapshot",
			Description: "Return the canvas as base64-encoded PNG. With outline, the bounding box is drawn as a dashed rectangle.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"outline": map[string]interface{}{
						"type":        "boolean",
						"description": "Draw the bounding box. Default false",
						"default":     false,
					},
				},
			},
		},

		// Generation
		{
			Name:        "sketch_generate",
			Description: "Turn the drawing inside the bounding box into an image URL. The enhance mode tags the drawing and writes a detailed prompt; the refine mode asks for a cleaner version of the sketch.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"enhance", "refine"},
						"description": "Generation mode. Default enhance",
						"default":     "enhance",
					},
				},
			},
		},
		{
			Name:        "sketch_dismiss_generated",
			Description: "Forget the generated image but keep the drawing, so it can be edited and generated again.",
			InputSchema: emptySchema(),
		},
	}
}
