package proj

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/osmada/osmada/element"
)

const pole = 6378137 * math.Pi // 20037508.342789244

// WgsToMerc projects WGS84 coordinates to EPSG:3857.
func WgsToMerc(long, lat float64) (x, y float64) {
	x = long * pole / 180.0
	y = math.Log(math.Tan((90.0+lat)*math.Pi/360.0)) / math.Pi * pole
	return x, y
}

// Point returns the coordinate as projected EPSG:3857 point.
func Point(c element.Coord) r2.Point {
	x, y := WgsToMerc(c.Long, c.Lat)
	return r2.Point{X: x, Y: y}
}

// NodeDistance returns the planar EPSG:3857 distance between two node
// positions. ok is false if one of the nodes has no position.
func NodeDistance(a, b *element.Node) (dist float64, ok bool) {
	if a == nil || b == nil || a.Coord == nil || b.Coord == nil {
		return 0, false
	}
	return Point(*a.Coord).Sub(Point(*b.Coord)).Norm(), true
}
