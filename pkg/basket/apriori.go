package basket

import (
	"sort"
	"strconv"
	"strings"

	"market-insights/pkg/models"
)

// itemset interne : indices de produits triés, avec son support.
type itemset struct {
	items   []int
	support float64
}

func itemKey(items []int) string {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(it))
	}
	return b.String()
}

// apriori : parcours par niveaux, candidats de taille k obtenus en joignant deux (k-1)-itemsets
// de même préfixe, élagués si un sous-ensemble n'est pas fréquent.
func apriori(m *Matrix, minSupport float64) []itemset {
	n := len(m.Customers)
	if n == 0 || len(m.Products) == 0 {
		return nil
	}
	support := func(items []int) float64 {
		count := 0
		for i := range m.Customers {
			if m.contains(i, items) {
				count++
			}
		}
		return float64(count) / float64(n)
	}

	var all []itemset
	var level []itemset
	for j := range m.Products {
		if s := support([]int{j}); s >= minSupport {
			level = append(level, itemset{items: []int{j}, support: s})
		}
	}

	for len(level) > 0 {
		all = append(all, level...)
		frequent := make(map[string]bool, len(level))
		for _, is := range level {
			frequent[itemKey(is.items)] = true
		}

		var next []itemset
		for a := 0; a < len(level); a++ {
			for b := a + 1; b < len(level); b++ {
				cand, ok := join(level[a].items, level[b].items)
				if !ok {
					// level est trié : plus aucun b ne partage le préfixe de a
					break
				}
				if !allSubsetsFrequent(cand, frequent) {
					continue
				}
				if s := support(cand); s >= minSupport {
					next = append(next, itemset{items: cand, support: s})
				}
			}
		}
		level = next
	}
	return all
}

// join fusionne deux itemsets de même préfixe (tous les éléments sauf le dernier).
func join(a, b []int) ([]int, bool) {
	last := len(a) - 1
	for i := 0; i < last; i++ {
		if a[i] != b[i] {
			return nil, false
		}
	}
	if a[last] >= b[last] {
		return nil, false
	}
	out := make([]int, len(a)+1)
	copy(out, a)
	out[len(a)] = b[last]
	return out, true
}

func allSubsetsFrequent(cand []int, frequent map[string]bool) bool {
	sub := make([]int, 0, len(cand)-1)
	for skip := range cand {
		sub = sub[:0]
		for i, it := range cand {
			if i != skip {
				sub = append(sub, it)
			}
		}
		if !frequent[itemKey(sub)] {
			return false
		}
	}
	return true
}

// rules dérive, pour chaque itemset fréquent de taille ≥ 2, toutes les règles A → (itemset \ A)
// dont la confiance atteint minConfidence.
func rules(sets []itemset, minConfidence float64) []rule {
	supportOf := make(map[string]float64, len(sets))
	for _, is := range sets {
		supportOf[itemKey(is.items)] = is.support
	}

	var out []rule
	for _, is := range sets {
		size := len(is.items)
		if size < 2 {
			continue
		}
		for mask := 1; mask < (1<<size)-1; mask++ {
			var ante, cons []int
			for i, it := range is.items {
				if mask&(1<<i) != 0 {
					ante = append(ante, it)
				} else {
					cons = append(cons, it)
				}
			}
			anteSup := supportOf[itemKey(ante)]
			consSup := supportOf[itemKey(cons)]
			if anteSup == 0 || consSup == 0 {
				continue
			}
			conf := is.support / anteSup
			if conf < minConfidence {
				continue
			}
			out = append(out, rule{
				antecedents:       ante,
				consequents:       cons,
				antecedentSupport: anteSup,
				consequentSupport: consSup,
				support:           is.support,
				confidence:        conf,
				lift:              conf / consSup,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].confidence != out[j].confidence {
			return out[i].confidence > out[j].confidence
		}
		if out[i].lift != out[j].lift {
			return out[i].lift > out[j].lift
		}
		ai, aj := itemKey(out[i].antecedents), itemKey(out[j].antecedents)
		if ai != aj {
			return ai < aj
		}
		return itemKey(out[i].consequents) < itemKey(out[j].consequents)
	})
	return out
}

type rule struct {
	antecedents       []int
	consequents       []int
	antecedentSupport float64
	consequentSupport float64
	support           float64
	confidence        float64
	lift              float64
}

func (r rule) export(products []string) models.AssociationRule {
	return models.AssociationRule{
		Antecedents:       names(r.antecedents, products),
		Consequents:       names(r.consequents, products),
		AntecedentSupport: r.antecedentSupport,
		ConsequentSupport: r.consequentSupport,
		Support:           r.support,
		Confidence:        r.confidence,
		Lift:              r.lift,
	}
}

func names(items []int, products []string) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = products[it]
	}
	return out
}
