package segment

import (
	"errors"
	"fmt"

	"market-insights/pkg/models"
)

const (
	MinClusters = 2
	MaxClusters = 8
)

var (
	ErrNoFeatures      = errors.New("no customer features")
	ErrTooFewCustomers = errors.New("segmentation needs at least 2 customers")
	ErrClusterCount    = errors.New("cluster count out of range")
)

// Result : affectation par client + description des clusters classés.
type Result struct {
	K           int                        `json:"k"`
	Assignments []models.SegmentAssignment `json:"assignments"`
	Clusters    []ClusterRank              `json:"clusters"`
}

// MaxK = min(8, nombre de clients).
func MaxK(customers int) int {
	if customers < MaxClusters {
		return customers
	}
	return MaxClusters
}

// DefaultK = min(3, MaxK).
func DefaultK(customers int) int {
	if m := MaxK(customers); m < 3 {
		return m
	}
	return 3
}

// ValidateK vérifie 2 ≤ k ≤ min(8, clients).
func ValidateK(k, customers int) error {
	if customers < MinClusters {
		return fmt.Errorf("%w: got %d", ErrTooFewCustomers, customers)
	}
	if k < MinClusters || k > MaxK(customers) {
		return fmt.Errorf("%w: k=%d, valid range [%d, %d]", ErrClusterCount, k, MinClusters, MaxK(customers))
	}
	return nil
}

// SegmentCustomers regroupe les clients sur (TotalQuantity, TotalPrice) puis nomme les clusters par dépense moyenne croissante.
func SegmentCustomers(features []models.CustomerFeatures, k int, c Clusterer) (Result, error) {
	if len(features) == 0 {
		return Result{}, ErrNoFeatures
	}
	if err := ValidateK(k, len(features)); err != nil {
		return Result{}, err
	}

	points := make([][]float64, len(features))
	for i, f := range features {
		points[i] = []float64{f.TotalQuantity, f.TotalPrice}
	}
	ids, err := c.Cluster(points, k)
	if err != nil {
		return Result{}, fmt.Errorf("cluster: %w", err)
	}
	if len(ids) != len(features) {
		return Result{}, fmt.Errorf("cluster: %d ids for %d customers", len(ids), len(features))
	}
	for i, id := range ids {
		if id < 0 || id >= k {
			return Result{}, fmt.Errorf("cluster: customer %s has id %d, want [0, %d)", features[i].CustomerID, id, k)
		}
	}

	ranks := RankClusters(features, ids, k)
	labelOf := make(map[int]string, len(ranks))
	for _, r := range ranks {
		labelOf[r.ClusterID] = r.Label
	}

	out := make([]models.SegmentAssignment, len(features))
	for i, f := range features {
		out[i] = models.SegmentAssignment{
			CustomerID:    f.CustomerID,
			ClusterID:     ids[i],
			SegmentLabel:  labelOf[ids[i]],
			TotalQuantity: f.TotalQuantity,
			TotalPrice:    f.TotalPrice,
		}
	}
	return Result{K: k, Assignments: out, Clusters: ranks}, nil
}

// SegmentTransactions = BuildFeatures + SegmentCustomers avec k-means à graine fixe.
// k <= 0 → DefaultK.
func SegmentTransactions(tx []models.Transaction, k int, seed int64) (Result, error) {
	features := BuildFeatures(tx)
	if len(features) == 0 {
		return Result{}, ErrNoFeatures
	}
	if k <= 0 {
		k = DefaultK(len(features))
	}
	return SegmentCustomers(features, k, NewKMeans(seed))
}
