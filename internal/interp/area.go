package interp

import (
	"math"

	"github.com/twpayne/go-geom"
)

// planarArea computes the planar area of a polygonal geometry in its own
// coordinate units. Holes subtract from the exterior ring. Non-polygonal
// geometries have zero area.
func planarArea(g geom.T) float64 {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonArea(t)
	case *geom.MultiPolygon:
		var sum float64
		for i := 0; i < t.NumPolygons(); i++ {
			sum += polygonArea(t.Polygon(i))
		}
		return sum
	default:
		return 0
	}
}

func polygonArea(p *geom.Polygon) float64 {
	if p == nil || p.NumLinearRings() == 0 {
		return 0
	}
	area := math.Abs(ringArea(p.LinearRing(0)))
	for i := 1; i < p.NumLinearRings(); i++ {
		area -= math.Abs(ringArea(p.LinearRing(i)))
	}
	if area < 0 {
		return 0
	}
	return area
}

// ringArea is the signed shoelace area of a linear ring.
func ringArea(r *geom.LinearRing) float64 {
	flat := r.FlatCoords()
	stride := r.Layout().Stride()
	if stride < 2 || len(flat) < 3*stride {
		return 0
	}
	var sum float64
	n := len(flat) / stride
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		x1, y1 := flat[i*stride], flat[i*stride+1]
		x2, y2 := flat[j*stride], flat[j*stride+1]
		sum += x1*y2 - x2*y1
	}
	return sum / 2
}
