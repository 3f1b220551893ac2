package detection

import (
	"encoding/json"
	"fmt"
)

// ToText renders a result as the JSON payload returned to clients.
//
// The layout is fixed:
//
//	{"width":W,"height":H,"count":N,"detections":[{"id":1,"kind":"circle",
//	 "confidence":0.9812,"geometry":{...},"boundingBox":{...},
//	 "color":"red","colorHex":"#e01b1b"}, ...]}
//
// Field order follows the struct declarations, confidence always has four
// decimals, and geometry values are already rounded by the classifier, so
// equal results always produce identical text.
func ToText(r *DetectionResult) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil detection result")
	}
	out := *r
	if out.Detections == nil {
		out.Detections = []ShapeDetection{}
	}
	out.Count = len(out.Detections)

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode detections: %w", err)
	}
	return string(data), nil
}

// ParseText decodes a payload produced by ToText.
func ParseText(text string) (*DetectionResult, error) {
	var r DetectionResult
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return nil, fmt.Errorf("failed to decode detections: %w", err)
	}
	if r.Detections == nil {
		r.Detections = []ShapeDetection{}
	}
	if r.Count != len(r.Detections) {
		return nil, fmt.Errorf("count %d does not match %d detections", r.Count, len(r.Detections))
	}
	return &r, nil
}
