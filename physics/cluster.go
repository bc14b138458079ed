package physics

import (
	"math"

	"github.com/TFMV/topicweb/models"
)

// Point is a position in layout coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClusterCenters places one anchor per category on a circle around the
// canvas centre. Categories are laid out in the order given, starting at
// angle zero, so the same category list and canvas always yield the same
// anchors.
func ClusterCenters(cats []models.Category, width, height, radiusRatio float64) map[models.Category]Point {
	centers := make(map[models.Category]Point, len(cats))
	if len(cats) == 0 {
		return centers
	}

	step := 2 * math.Pi / float64(len(cats))
	radius := math.Min(width, height) * radiusRatio
	cx, cy := width/2, height/2

	for i, cat := range cats {
		angle := float64(i) * step
		centers[cat] = Point{
			X: cx + math.Cos(angle)*radius,
			Y: cy + math.Sin(angle)*radius,
		}
	}
	return centers
}
