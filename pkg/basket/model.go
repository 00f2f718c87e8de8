package basket

import (
	"fmt"
	"sort"

	"market-insights/pkg/models"
)

const (
	DefaultMinSupport    = 0.05
	DefaultMinConfidence = 0.60
)

// Options : seuils de minage. Zéro → valeur par défaut.
type Options struct {
	MinSupport    float64
	MinConfidence float64
}

func (o Options) withDefaults() (Options, error) {
	if o.MinSupport == 0 {
		o.MinSupport = DefaultMinSupport
	}
	if o.MinConfidence == 0 {
		o.MinConfidence = DefaultMinConfidence
	}
	if o.MinSupport < 0 || o.MinSupport > 1 {
		return o, fmt.Errorf("min support %.4f outside (0, 1]", o.MinSupport)
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return o, fmt.Errorf("min confidence %.4f outside (0, 1]", o.MinConfidence)
	}
	return o, nil
}

// Model : matrice de paniers, itemsets fréquents et règles d'association d'une exécution.
// Lecture seule après Build ; sûr en lecture concurrente.
type Model struct {
	matrix   *Matrix
	itemsets []models.FrequentItemset
	rules    []models.AssociationRule

	// règles groupées par antécédent, dans l'ordre des règles
	groups []ruleGroup
}

type ruleGroup struct {
	antecedents []string
	consequents []string
}

// Build construit la matrice, mine les itemsets fréquents puis les règles.
// Aucun itemset au-dessus du seuil n'est pas une erreur : le modèle est simplement vide.
func Build(tx []models.Transaction, opts Options) (*Model, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	m := BuildMatrix(tx)
	sets := apriori(m, opts.MinSupport)
	rs := rules(sets, opts.MinConfidence)

	model := &Model{matrix: m}
	for _, is := range sets {
		model.itemsets = append(model.itemsets, models.FrequentItemset{
			Items:   names(is.items, m.Products),
			Support: is.support,
		})
	}

	groupIdx := make(map[string]int)
	for _, r := range rs {
		model.rules = append(model.rules, r.export(m.Products))

		key := itemKey(r.antecedents)
		gi, ok := groupIdx[key]
		if !ok {
			gi = len(model.groups)
			groupIdx[key] = gi
			model.groups = append(model.groups, ruleGroup{antecedents: names(r.antecedents, m.Products)})
		}
		model.groups[gi].consequents = append(model.groups[gi].consequents, names(r.consequents, m.Products)...)
	}
	return model, nil
}

func (m *Model) Matrix() *Matrix { return m.matrix }

func (m *Model) Itemsets() []models.FrequentItemset { return m.itemsets }

func (m *Model) Rules() []models.AssociationRule { return m.rules }

// Recommend réunit les conséquents de toutes les règles dont l'antécédent est inclus dans purchased,
// puis retire les produits déjà achetés. Résultat trié, vide (non nil) si rien ne s'applique.
func (m *Model) Recommend(purchased []string) []string {
	have := make(map[string]bool, len(purchased))
	for _, p := range purchased {
		have[p] = true
	}

	rec := make(map[string]bool)
	for _, g := range m.groups {
		if !subset(g.antecedents, have) {
			continue
		}
		for _, c := range g.consequents {
			if !have[c] {
				rec[c] = true
			}
		}
	}

	out := make([]string, 0, len(rec))
	for p := range rec {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RecommendFor applique Recommend à tous les produits présents dans les lignes du client,
// y compris ceux dont la quantité cumulée est nulle ou négative. ok=false si le client est inconnu.
func (m *Model) RecommendFor(customerID string) (purchased, recommended []string, ok bool) {
	purchased, ok = m.matrix.Seen(customerID)
	if !ok {
		return nil, nil, false
	}
	return purchased, m.Recommend(purchased), true
}

func subset(items []string, set map[string]bool) bool {
	for _, it := range items {
		if !set[it] {
			return false
		}
	}
	return true
}
