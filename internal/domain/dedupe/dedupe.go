// Package dedupe removes candidate sites that crowd each other.
package dedupe

import (
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/okian/aedplacement/internal/domain/model"
)

// DefaultMinDistance is the planar separation, in degrees, below which a
// later candidate is dropped (roughly 130 m in latitude).
const DefaultMinDistance = 0.0012

// Deduper thins candidate sites so that no two kept sites are strictly
// closer than the configured distance.
type Deduper struct {
	minDistance float64
}

// New creates a Deduper with configuration options.
func New(opts ...Option) *Deduper {
	d := &Deduper{minDistance: DefaultMinDistance}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Apply is RemoveClose with the configured separation.
func (d *Deduper) Apply(sites []model.CandidateSite) []model.CandidateSite {
	return RemoveClose(sites, d.minDistance)
}

// RemoveClose drops the later site of every pair strictly closer than
// minDistance (planar, in degrees), whether or not the earlier site of the
// pair survives. On a chain a-b-c where only neighbours collide, b and c are
// both dropped. The result keeps input order and the input is not modified.
func RemoveClose(sites []model.CandidateSite, minDistance float64) []model.CandidateSite {
	out := make([]model.CandidateSite, 0, len(sites))
	if minDistance <= 0 || len(sites) < 2 {
		return append(out, sites...)
	}

	pts := make(sitePoints, len(sites))
	for i, s := range sites {
		pts[i] = sitePoint{x: s.Lon, y: s.Lat, idx: i}
	}
	// New reorders its argument while building a balanced tree.
	tree := kdtree.New(append(sitePoints(nil), pts...), false)

	// Distances are squared.
	limit := minDistance * minDistance
	for i, s := range sites {
		if !hasEarlierNeighbour(tree, pts[i], limit) {
			out = append(out, s)
		}
	}
	return out
}

func hasEarlierNeighbour(tree *kdtree.Tree, p sitePoint, limit float64) bool {
	keep := kdtree.NewDistKeeper(limit)
	tree.NearestSet(keep, p)
	for _, c := range keep.Heap {
		q, ok := c.Comparable.(sitePoint)
		if ok && q.idx < p.idx && c.Dist < limit {
			return true
		}
	}
	return false
}

// sitePoint is a candidate in lon/lat degree space that remembers its input
// position.
type sitePoint struct {
	x, y float64
	idx  int
}

func (p sitePoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(sitePoint)
	if d == 0 {
		return p.x - q.x
	}
	return p.y - q.y
}

func (p sitePoint) Dims() int { return 2 }

func (p sitePoint) Distance(c kdtree.Comparable) float64 {
	q := c.(sitePoint)
	dx, dy := p.x-q.x, p.y-q.y
	return dx*dx + dy*dy
}

type sitePoints []sitePoint

func (p sitePoints) Index(i int) kdtree.Comparable { return p[i] }

func (p sitePoints) Len() int { return len(p) }

func (p sitePoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p sitePoints) Pivot(d kdtree.Dim) int {
	pl := plane{sitePoints: p, dim: d}
	return kdtree.Partition(pl, kdtree.MedianOfMedians(pl))
}

// plane sorts sitePoints along one dimension for median partitioning.
type plane struct {
	sitePoints
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.sitePoints[i].Compare(p.sitePoints[j], p.dim) < 0
}

func (p plane) Swap(i, j int) {
	p.sitePoints[i], p.sitePoints[j] = p.sitePoints[j], p.sitePoints[i]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{sitePoints: p.sitePoints[start:end], dim: p.dim}
}
