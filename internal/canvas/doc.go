// Package canvas implements the raster drawing surface behind the sketchpad.
//
// A Surface owns a single RGBA raster buffer sized to the viewport. Free-hand
// strokes are rasterized into it immediately as the pointer moves; nothing
// about a stroke is retained once its pixels are written. When a stroke ends
// the surface rescans the whole buffer for non-transparent pixels and keeps
// the padded bounding box of the drawing.
//
// # Coordinate System
//
// All coordinates are 0-based with the origin at the top-left corner:
//   - X increases rightward, Y increases downward
//   - Stroke points are float64 (pointer positions are sub-pixel)
//   - Bounding boxes are integers; MinX/MinY are inclusive, MaxX/MaxY are
//     exclusive, so Width() = MaxX - MinX
//
// # Tools
//
// The pen composites new pixels over existing ones (source-over) using the
// configured width and color with round caps and joins. The eraser removes
// destination alpha under its stroke (destination-out) and is EraserScale
// times wider than the pen.
//
// # Bounding Box
//
// ComputeBoundingBox is an O(width*height) scan over the alpha channel. It is
// triggered once per completed stroke, never per pointer move. The result is
// padded by a fixed margin (DefaultPadding) and clamped to the buffer extents,
// or nil when the buffer is fully transparent.
//
// # Resizing
//
// Resize reallocates the buffer and discards its contents. Drawings do not
// survive a viewport resize; resampling is deliberately not attempted.
//
// # Thread Safety
//
// Surface methods are safe for concurrent use. Snapshot and Crop return
// independent copies, so a generation request can keep working on its pixels
// while the user continues to draw.
//
// # Encoding
//
// Cropped regions are serialized as PNG and then as standard base64 for the
// tagging call. DecodeDataURL performs the reverse for uploaded payloads.
package canvas
