package ocr

import (
	"context"
	"sort"

	"parkgate-service/internal/utils"
)

// Detection is one recognized text region within an image crop.
type Detection struct {
	X          int
	Y          int
	Text       string
	Confidence float64
}

// Recognizer is the external optical recognition collaborator: it turns an
// image region into a list of text detections with confidences.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]Detection, error)
}

// MergePlate combines multi-region detections into one plate: detections
// at or below minConfidence are dropped, survivors are ordered left to
// right by region origin, concatenated and normalized.
func MergePlate(dets []Detection, minConfidence float64) string {
	kept := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence > minConfidence {
			kept = append(kept, d)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].X < kept[j].X })

	var combined string
	for _, d := range kept {
		combined += d.Text
	}
	return utils.NormalizePlate(combined)
}

// LivePlate picks a single authoritative plate for the gate cameras: the
// highest-confidence detection above minConfidence that normalizes to a
// plausible plate. Low-confidence or short fragments read as "no
// detection", never as an error.
func LivePlate(dets []Detection, minConfidence float64) (string, bool) {
	best := ""
	bestConf := minConfidence
	for _, d := range dets {
		plate := utils.NormalizePlate(d.Text)
		if d.Confidence > bestConf && utils.PlausiblePlate(plate) {
			best = plate
			bestConf = d.Confidence
		}
	}
	return best, best != ""
}
