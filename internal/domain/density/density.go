// Package density estimates incident density for the dashboard heatmap.
package density

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/aedplacement/internal/domain/model"
)

// Estimate evaluates a two-dimensional Gaussian kernel density estimate of
// points at each point. The kernel covariance is the sample covariance of
// (lon, lat) scaled by Scott's factor n^(-1/6). With fewer than two points
// or a degenerate covariance every density is 1.
func Estimate(points []model.Coordinate) []float64 {
	n := len(points)
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	if n < 2 {
		return out
	}

	data := mat.NewDense(n, 2, nil)
	for i, p := range points {
		data.Set(i, 0, p.Lon)
		data.Set(i, 1, p.Lat)
	}
	cov := mat.NewSymDense(2, nil)
	stat.CovarianceMatrix(cov, data, nil)
	factor := math.Pow(float64(n), -1.0/6)
	cov.ScaleSym(factor*factor, cov)

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return out
	}
	inv := mat.NewSymDense(2, nil)
	if err := chol.InverseTo(inv); err != nil {
		return out
	}
	norm := 1 / (2 * math.Pi * math.Exp(chol.LogDet()/2) * float64(n))

	diff := mat.NewVecDense(2, nil)
	for i, p := range points {
		var sum float64
		for _, q := range points {
			diff.SetVec(0, p.Lon-q.Lon)
			diff.SetVec(1, p.Lat-q.Lat)
			sum += math.Exp(-0.5 * mat.Inner(diff, inv, diff))
		}
		out[i] = sum * norm
	}
	return out
}
