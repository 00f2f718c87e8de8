package segment

import (
	"sort"
	"strconv"

	"market-insights/pkg/models"
)

// BuildFeatures agrège les transactions par client : somme des quantités, somme des prix.
// Une ligne par client, triée par identifiant (numérique si tous les identifiants sont des nombres).
func BuildFeatures(tx []models.Transaction) []models.CustomerFeatures {
	if len(tx) == 0 {
		return nil
	}
	byCustomer := make(map[string]*models.CustomerFeatures)
	for _, t := range tx {
		f, ok := byCustomer[t.CustomerID]
		if !ok {
			f = &models.CustomerFeatures{CustomerID: t.CustomerID}
			byCustomer[t.CustomerID] = f
		}
		f.TotalQuantity += t.Quantity
		f.TotalPrice += t.Price
	}

	ids := make([]string, 0, len(byCustomer))
	for id := range byCustomer {
		ids = append(ids, id)
	}
	SortIDs(ids)

	out := make([]models.CustomerFeatures, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byCustomer[id])
	}
	return out
}

// SortIDs trie des identifiants : numériquement s'ils sont tous numériques, lexicographiquement sinon.
func SortIDs(ids []string) {
	nums := make(map[string]float64, len(ids))
	for _, id := range ids {
		v, err := strconv.ParseFloat(id, 64)
		if err != nil {
			sort.Strings(ids)
			return
		}
		nums[id] = v
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := nums[ids[i]], nums[ids[j]]
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
}
