package normalize

import (
	"strings"

	"market-insights/pkg/models"
)

// Role est un rôle canonique du schéma de transaction.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleProduct  Role = "product"
	RoleQuantity Role = "quantity"
	RoleDate     Role = "date"
	RolePrice    Role = "price"
)

// Mots-clés par rôle, testés dans cet ordre sur le nom de colonne en minuscules.
var roleKeywords = map[Role][]string{
	RoleCustomer: {"customer", "user", "client"},
	RoleProduct:  {"product", "item", "sku"},
	RoleQuantity: {"quantity", "qty", "count"},
	RolePrice:    {"price", "amount", "cost", "value"},
	RoleDate:     {"date", "time", "order"},
}

// SuggestColumn renvoie la première colonne (dans l'ordre donné) dont le nom contient un mot-clé du rôle.
// ok=false : aucune suggestion.
func SuggestColumn(columns []string, role Role) (string, bool) {
	keywords := roleKeywords[role]
	for _, col := range columns {
		lower := strings.ToLower(col)
		for _, key := range keywords {
			if strings.Contains(lower, key) {
				return col, true
			}
		}
	}
	return "", false
}

// SuggestMapping applique SuggestColumn à chaque rôle. Les rôles sans suggestion restent vides.
func SuggestMapping(columns []string) models.ColumnMapping {
	pick := func(role Role) string {
		col, _ := SuggestColumn(columns, role)
		return col
	}
	return models.ColumnMapping{
		Customer: pick(RoleCustomer),
		Product:  pick(RoleProduct),
		Quantity: pick(RoleQuantity),
		Date:     pick(RoleDate),
		Price:    pick(RolePrice),
	}
}

// ResolveMapping complète un mapping explicite avec les suggestions, rôle par rôle.
// Un choix explicite n'est jamais remplacé. Les rôles complétés sont renvoyés pour que l'appelant puisse les afficher.
// Le prix n'est suggéré que si suggestPrice est vrai (sinon pas de prix → prix 1).
func ResolveMapping(explicit models.ColumnMapping, columns []string, suggestPrice bool) (models.ColumnMapping, []Role) {
	suggested := SuggestMapping(columns)
	out := explicit
	var filled []Role

	fill := func(dst *string, src string, role Role) {
		if *dst == "" && src != "" {
			*dst = src
			filled = append(filled, role)
		}
	}
	fill(&out.Customer, suggested.Customer, RoleCustomer)
	fill(&out.Product, suggested.Product, RoleProduct)
	fill(&out.Quantity, suggested.Quantity, RoleQuantity)
	fill(&out.Date, suggested.Date, RoleDate)
	if suggestPrice {
		fill(&out.Price, suggested.Price, RolePrice)
	}
	return out, filled
}
