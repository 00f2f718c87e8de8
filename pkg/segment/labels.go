package segment

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"market-insights/pkg/models"
)

// tierLabels[k] = libellés du moins au plus rentable pour k clusters.
var tierLabels = [...][]string{
	2: {"Low Value", "High Value"},
	3: {"Low Value", "Medium Value", "High Value"},
	4: {"Very Low", "Low", "High", "Very High"},
	5: {"Very Low", "Low", "Medium", "High", "Very High"},
	6: {"Extremely Low", "Very Low", "Low", "High", "Very High", "Premium"},
	7: {"Extremely Low", "Very Low", "Low", "Medium", "High", "Very High", "Premium"},
	8: {"Extremely Low", "Very Low", "Low", "Lower-Medium", "Upper-Medium", "High", "Very High", "Premium"},
}

// LabelsFor renvoie les libellés ordonnés pour k clusters.
// Hors table : "Segment 1".."Segment k".
func LabelsFor(k int) []string {
	if k < 0 {
		k = 0
	}
	if k < len(tierLabels) && tierLabels[k] != nil {
		out := make([]string, k)
		copy(out, tierLabels[k])
		return out
	}
	out := make([]string, k)
	for i := range out {
		out[i] = fmt.Sprintf("Segment %d", i+1)
	}
	return out
}

// ClusterRank décrit un cluster non vide une fois classé.
type ClusterRank struct {
	ClusterID      int     `json:"cluster_id"`
	Rank           int     `json:"rank"`
	Label          string  `json:"label"`
	Members        int     `json:"members"`
	MeanTotalPrice float64 `json:"mean_total_price"`
}

// RankClusters trie les clusters non vides par TotalPrice moyen croissant et leur attribue LabelsFor(k) dans cet ordre.
// À moyenne égale, le plus petit identifiant passe devant.
func RankClusters(features []models.CustomerFeatures, clusterIDs []int, k int) []ClusterRank {
	prices := make(map[int][]float64)
	for i, f := range features {
		prices[clusterIDs[i]] = append(prices[clusterIDs[i]], f.TotalPrice)
	}

	ranks := make([]ClusterRank, 0, len(prices))
	for id, p := range prices {
		ranks = append(ranks, ClusterRank{
			ClusterID:      id,
			Members:        len(p),
			MeanTotalPrice: stat.Mean(p, nil),
		})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].MeanTotalPrice != ranks[j].MeanTotalPrice {
			return ranks[i].MeanTotalPrice < ranks[j].MeanTotalPrice
		}
		return ranks[i].ClusterID < ranks[j].ClusterID
	})

	labels := LabelsFor(k)
	for i := range ranks {
		ranks[i].Rank = i
		if i < len(labels) {
			ranks[i].Label = labels[i]
		} else {
			ranks[i].Label = fmt.Sprintf("Segment %d", i+1)
		}
	}
	return ranks
}
