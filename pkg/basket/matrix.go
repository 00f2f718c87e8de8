package basket

import (
	"sort"

	"market-insights/pkg/models"
	"market-insights/pkg/segment"
)

// Matrix : matrice binaire clients × produits. Cells[i][j] vaut vrai si le client i a acheté le produit j
// (quantité cumulée > 0).
type Matrix struct {
	Customers []string
	Products  []string
	Cells     [][]bool

	// seen[i][j] : le produit j apparaît dans au moins une ligne du client i, quelle que soit la quantité
	seen        [][]bool
	customerIdx map[string]int
	productIdx  map[string]int
}

// BuildMatrix construit la matrice de présence à partir des transactions.
// Clients et produits sont triés pour que le minage soit déterministe.
func BuildMatrix(tx []models.Transaction) *Matrix {
	type key struct{ customer, product string }
	qty := make(map[key]float64)
	customers := make(map[string]struct{})
	products := make(map[string]struct{})
	for _, t := range tx {
		qty[key{t.CustomerID, t.Product}] += t.Quantity
		customers[t.CustomerID] = struct{}{}
		products[t.Product] = struct{}{}
	}

	m := &Matrix{
		Customers:   keys(customers),
		Products:    keys(products),
		customerIdx: make(map[string]int),
		productIdx:  make(map[string]int),
	}
	segment.SortIDs(m.Customers)
	for i, c := range m.Customers {
		m.customerIdx[c] = i
	}
	for j, p := range m.Products {
		m.productIdx[p] = j
	}

	m.Cells = make([][]bool, len(m.Customers))
	m.seen = make([][]bool, len(m.Customers))
	for i := range m.Cells {
		m.Cells[i] = make([]bool, len(m.Products))
		m.seen[i] = make([]bool, len(m.Products))
	}
	for k, q := range qty {
		i, j := m.customerIdx[k.customer], m.productIdx[k.product]
		m.seen[i][j] = true
		if q > 0 {
			m.Cells[i][j] = true
		}
	}
	return m
}

// Purchased renvoie les produits achetés par un client (quantité cumulée > 0), triés. ok=false si le client est inconnu.
func (m *Matrix) Purchased(customerID string) ([]string, bool) {
	i, ok := m.customerIdx[customerID]
	if !ok {
		return nil, false
	}
	return m.productsWhere(m.Cells[i]), true
}

// Seen renvoie tous les produits présents dans les lignes du client, retours et quantités nulles compris.
func (m *Matrix) Seen(customerID string) ([]string, bool) {
	i, ok := m.customerIdx[customerID]
	if !ok {
		return nil, false
	}
	return m.productsWhere(m.seen[i]), true
}

func (m *Matrix) productsWhere(row []bool) []string {
	var out []string
	for j, on := range row {
		if on {
			out = append(out, m.Products[j])
		}
	}
	return out
}

// contains : le panier i contient-il tous les produits (indices) ?
func (m *Matrix) contains(i int, items []int) bool {
	row := m.Cells[i]
	for _, j := range items {
		if !row[j] {
			return false
		}
	}
	return true
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
