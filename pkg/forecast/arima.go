package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

var ErrModelFit = errors.New("model fit failed")

// ARIMA111 : modèle ARIMA(1,1,1) sans constante, ajusté par moindres carrés conditionnels (CSS).
// Sur la série différenciée y : y[t] = Phi*y[t-1] + e[t] + Theta*e[t-1].
type ARIMA111 struct {
	Phi    float64 `json:"phi"`
	Theta  float64 `json:"theta"`
	Sigma2 float64 `json:"sigma2"`

	last     float64 // dernière valeur observée (niveau)
	lastDiff float64 // dernière différence
	lastErr  float64 // dernier résidu
}

// |Theta| au-delà : MA non inversible, l'ajustement est rejeté
const maxAbsTheta = 1 - 1e-4

// points de départ (espace transformé atanh) ; on garde le meilleur
var starts = [][]float64{{0, 0}, {0.5, 0.5}, {0.5, -0.5}, {-0.5, 0.5}, {-0.5, -0.5}}

// FitARIMA ajuste le modèle sur une série de niveaux (au moins 3 points).
// Renvoie ErrModelFit pour une série sans variation, un critère indépendant des paramètres,
// un optimum non fini ou un Theta sur la frontière d'inversibilité.
func FitARIMA(levels []float64) (*ARIMA111, error) {
	if len(levels) < 3 {
		return nil, fmt.Errorf("%w: %d points", ErrModelFit, len(levels))
	}
	for _, v := range levels {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite observation", ErrModelFit)
		}
	}
	diff := make([]float64, len(levels)-1)
	flat := true
	for i := range diff {
		diff[i] = levels[i+1] - levels[i]
		if diff[i] != 0 {
			flat = false
		}
	}
	if flat {
		return nil, fmt.Errorf("%w: series has no variation", ErrModelFit)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sse, _ := css(diff, math.Tanh(x[0]), math.Tanh(x[1]))
			return sse
		},
	}

	// critère identique en tous les points de départ : paramètres non identifiables
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range starts {
		f := problem.Func(s)
		lo, hi = math.Min(lo, f), math.Max(hi, f)
	}
	if hi-lo <= 1e-12*math.Max(1, math.Abs(hi)) {
		return nil, fmt.Errorf("%w: objective does not depend on the parameters", ErrModelFit)
	}

	var best *optimize.Result
	for _, s := range starts {
		res, err := optimize.Minimize(problem, s, nil, &optimize.NelderMead{})
		if err != nil {
			continue
		}
		if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
			continue
		}
		if best == nil || res.F < best.F {
			best = res
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: optimizer did not converge", ErrModelFit)
	}

	phi, theta := math.Tanh(best.X[0]), math.Tanh(best.X[1])
	if math.Abs(theta) >= maxAbsTheta {
		return nil, fmt.Errorf("%w: non-invertible MA term (theta=%.6f)", ErrModelFit, theta)
	}
	sse, lastErr := css(diff, phi, theta)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return nil, fmt.Errorf("%w: non-finite residuals", ErrModelFit)
	}
	return &ARIMA111{
		Phi:      phi,
		Theta:    theta,
		Sigma2:   sse / float64(len(diff)-1),
		last:     levels[len(levels)-1],
		lastDiff: diff[len(diff)-1],
		lastErr:  lastErr,
	}, nil
}

// css : somme des carrés des résidus, conditionnée sur y[0] avec e[0] = 0. Renvoie aussi le dernier résidu.
func css(y []float64, phi, theta float64) (float64, float64) {
	sse, prevErr := 0.0, 0.0
	for t := 1; t < len(y); t++ {
		e := y[t] - phi*y[t-1] - theta*prevErr
		sse += e * e
		prevErr = e
	}
	return sse, prevErr
}

// Forecast projette h niveaux futurs : différences prévues puis intégration.
func (m *ARIMA111) Forecast(h int) []float64 {
	out := make([]float64, h)
	level, prevDiff := m.last, m.lastDiff
	for i := 0; i < h; i++ {
		d := m.Phi * prevDiff
		if i == 0 {
			d += m.Theta * m.lastErr
		}
		level += d
		out[i] = level
		prevDiff = d
	}
	return out
}
