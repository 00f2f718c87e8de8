package segment

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Clusterer partitionne des points en k groupes et renvoie un identifiant de cluster arbitraire par point.
// Les identifiants n'ont aucun ordre sémantique : c'est RankClusters qui leur donne un sens.
type Clusterer interface {
	Cluster(points [][]float64, k int) ([]int, error)
}

// KMeans : Lloyd avec initialisation k-means++, plusieurs initialisations, meilleure inertie retenue.
// Même Seed + mêmes points → mêmes identifiants.
type KMeans struct {
	Seed    int64
	NInit   int
	MaxIter int
	Tol     float64
}

// NewKMeans avec les réglages usuels (10 initialisations, 300 itérations, tol 1e-4).
func NewKMeans(seed int64) *KMeans {
	return &KMeans{Seed: seed, NInit: 10, MaxIter: 300, Tol: 1e-4}
}

func (km *KMeans) Cluster(points [][]float64, k int) ([]int, error) {
	if k <= 0 || k > len(points) {
		return nil, fmt.Errorf("kmeans: k=%d with %d points", k, len(points))
	}
	nInit := km.NInit
	if nInit <= 0 {
		nInit = 1
	}
	maxIter := km.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}
	tol := km.Tol * meanVariance(points)

	rng := rand.New(rand.NewSource(km.Seed))
	var best []int
	bestInertia := math.Inf(1)
	for run := 0; run < nInit; run++ {
		centers := initPlusPlus(points, k, rng)
		labels, inertia := lloyd(points, centers, maxIter, tol)
		if inertia < bestInertia {
			bestInertia = inertia
			best = labels
		}
	}
	return best, nil
}

// initPlusPlus : premier centre uniforme, les suivants tirés proportionnellement à D².
func initPlusPlus(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centers := make([][]float64, 0, k)
	centers = append(centers, clone(points[rng.Intn(len(points))]))

	d2 := make([]float64, len(points))
	for i, p := range points {
		d2[i] = sqDist(p, centers[0])
	}
	for len(centers) < k {
		total := floats.Sum(d2)
		idx := 0
		if total <= 0 {
			idx = rng.Intn(len(points))
		} else {
			target := rng.Float64() * total
			acc := 0.0
			for i, d := range d2 {
				acc += d
				if acc >= target {
					idx = i
					break
				}
			}
		}
		c := clone(points[idx])
		centers = append(centers, c)
		for i, p := range points {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

func lloyd(points [][]float64, centers [][]float64, maxIter int, tol float64) ([]int, float64) {
	k := len(centers)
	dim := len(points[0])
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, p := range points {
			c := nearest(p, centers)
			if c != labels[i] {
				labels[i] = c
				changed = true
			}
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}

		shift := 0.0
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				// cluster vide : on le relance sur le point le plus éloigné de son centre
				far := farthest(points, labels, centers)
				sums[c] = clone(points[far])
				counts[c] = 1
				labels[far] = c
				changed = true
			} else {
				floats.Scale(1/float64(counts[c]), sums[c])
			}
			shift += sqDist(sums[c], centers[c])
			centers[c] = sums[c]
		}

		if !changed || shift <= tol {
			break
		}
	}

	for i, p := range points {
		labels[i] = nearest(p, centers)
	}
	inertia := 0.0
	for i, p := range points {
		inertia += sqDist(p, centers[labels[i]])
	}
	return labels, inertia
}

func nearest(p []float64, centers [][]float64) int {
	best, bestD := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDist(p, center); d < bestD {
			best, bestD = c, d
		}
	}
	return best
}

func farthest(points [][]float64, labels []int, centers [][]float64) int {
	idx, maxD := 0, -1.0
	for i, p := range points {
		if d := sqDist(p, centers[labels[i]]); d > maxD {
			idx, maxD = i, d
		}
	}
	return idx
}

func meanVariance(points [][]float64) float64 {
	if len(points) == 0 {
		return 0
	}
	dim := len(points[0])
	col := make([]float64, len(points))
	total := 0.0
	for j := 0; j < dim; j++ {
		for i, p := range points {
			col[i] = p[j]
		}
		mean := floats.Sum(col) / float64(len(col))
		v := 0.0
		for _, x := range col {
			v += (x - mean) * (x - mean)
		}
		total += v / float64(len(col))
	}
	return total / float64(dim)
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}
