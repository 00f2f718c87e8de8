package forecast

import (
	"sort"
	"time"

	"market-insights/pkg/models"
)

// MonthlySeries agrège Quantity×Price par mois calendaire, par ordre croissant.
// Seuls les mois ayant au moins une transaction apparaissent (pas de remplissage à zéro).
func MonthlySeries(tx []models.Transaction) []models.MonthlySales {
	byMonth := make(map[time.Time]float64)
	for _, t := range tx {
		byMonth[MonthStart(t.Date)] += t.Sales()
	}

	out := make([]models.MonthlySales, 0, len(byMonth))
	for m, s := range byMonth {
		out = append(out, models.MonthlySales{MonthStart: m, Sales: s})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].MonthStart.Before(out[j].MonthStart)
	})
	return out
}

// MissingMonths compte les mois sans transaction entre le premier et le dernier mois observés.
func MissingMonths(series []models.MonthlySales) int {
	if len(series) == 0 {
		return 0
	}
	span := MonthsBetweenInclusive(series[0].MonthStart, series[len(series)-1].MonthStart)
	return len(span) - len(series)
}
