package forecast

import (
	"errors"
	"fmt"

	"market-insights/pkg/models"
)

const (
	DefaultMinMonths = 6
	DefaultHorizon   = 3
)

// ErrInsufficientHistory : trop peu de mois observés. Règle métier, vérifiée avant tout ajustement.
var ErrInsufficientHistory = errors.New("insufficient history")

// Options : zéro → valeur par défaut.
type Options struct {
	MinMonths int
	Horizon   int
}

// Result : série observée, mois prévus et paramètres ajustés.
type Result struct {
	History       []models.MonthlySales  `json:"history"`
	Points        []models.ForecastPoint `json:"forecast"`
	Model         *ARIMA111              `json:"model"`
	MissingMonths int                    `json:"missing_months"`
}

// Forecast construit la série mensuelle puis, si elle compte au moins MinMonths mois, ajuste un ARIMA(1,1,1)
// et prévoit Horizon mois consécutifs après le dernier mois observé.
// En cas d'échec, Result.History reste renseigné pour l'appelant.
func Forecast(tx []models.Transaction, opts Options) (Result, error) {
	if opts.MinMonths <= 0 {
		opts.MinMonths = DefaultMinMonths
	}
	if opts.Horizon <= 0 {
		opts.Horizon = DefaultHorizon
	}

	series := MonthlySeries(tx)
	res := Result{History: series, MissingMonths: MissingMonths(series)}
	if len(series) < opts.MinMonths {
		return res, fmt.Errorf("%w: %d monthly observations, need %d", ErrInsufficientHistory, len(series), opts.MinMonths)
	}

	levels := make([]float64, len(series))
	for i, s := range series {
		levels[i] = s.Sales
	}
	model, err := FitARIMA(levels)
	if err != nil {
		return res, err
	}

	last := series[len(series)-1].MonthStart
	values := model.Forecast(opts.Horizon)
	res.Model = model
	res.Points = make([]models.ForecastPoint, len(values))
	for i, v := range values {
		res.Points[i] = models.ForecastPoint{
			MonthStart:     last.AddDate(0, i+1, 0),
			PredictedSales: v,
		}
	}
	return res, nil
}
