package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"market-insights/pkg/basket"
	"market-insights/pkg/forecast"
	"market-insights/pkg/models"
	"market-insights/pkg/normalize"
	"market-insights/pkg/segment"
)

const (
	StageSegmentation = "segmentation"
	StageBasket       = "recommendations"
	StageForecast     = "forecast"
)

var ErrEmptyWindow = errors.New("no transaction in the selected month window")

// StageError : échec d'une étape, rapporté comme donnée.
type StageError struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Overview : indicateurs globaux du jeu de données.
type Overview struct {
	Transactions int       `json:"transactions"`
	Customers    int       `json:"customers"`
	Products     int       `json:"products"`
	TotalSales   float64   `json:"total_sales"`
	FirstDate    time.Time `json:"first_date"`
	LastDate     time.Time `json:"last_date"`
}

// BasketSummary : itemsets fréquents et règles du modèle de panier.
type BasketSummary struct {
	Itemsets []models.FrequentItemset `json:"itemsets"`
	Rules    []models.AssociationRule `json:"rules"`
}

// Report : résultat d'une exécution. Une étape en échec ajoute une StageError ; son champ reste nil,
// sauf Forecast qui garde l'historique mensuel.
type Report struct {
	RunID        string           `json:"run_id"`
	Normalize    normalize.Stats  `json:"normalize"`
	Overview     Overview         `json:"overview"`
	Segmentation *segment.Result  `json:"segmentation,omitempty"`
	Basket       *BasketSummary   `json:"basket,omitempty"`
	Forecast     *forecast.Result `json:"forecast,omitempty"`
	Errors       []StageError     `json:"errors,omitempty"`

	model *basket.Model
}

// BasketModel renvoie le modèle de recommandation (nil si l'étape a échoué).
func (r *Report) BasketModel() *basket.Model {
	return r.model
}

// Prepare normalise la table brute avec le mapping résolu et journalise ce qui a été écarté.
func Prepare(raw models.RawTable, mapping models.ColumnMapping, logger *zap.Logger) ([]models.Transaction, normalize.Stats, error) {
	tx, stats, err := normalize.Normalize(raw, mapping)
	logger.Info("normalisation",
		zap.Int("rows_read", stats.RowsRead),
		zap.Int("rows_kept", stats.RowsKept),
		zap.Int("missing_fields", stats.MissingFields),
		zap.Int("bad_dates", stats.BadDates))
	if stats.PriceDefaulted > 0 {
		logger.Warn("prix illisibles remplacés par le prix par défaut",
			zap.Int("rows", stats.PriceDefaulted),
			zap.Float64("default_price", normalize.DefaultPrice))
	}
	if err != nil {
		return nil, stats, fmt.Errorf("normalize: %w", err)
	}
	return tx, stats, nil
}

// Run calcule les trois produits (segmentation, recommandations, prévision) en parallèle sur la même table.
// Les échecs d'étape sont rapportés dans Report.Errors ; seule une configuration invalide renvoie une erreur.
func Run(ctx context.Context, tx []models.Transaction, cfg models.Config, logger *zap.Logger) (*Report, error) {
	tx, err := filterWindow(tx, cfg.StartMonthInclusive, cfg.EndMonthInclusive)
	if err != nil {
		return nil, err
	}
	if len(tx) == 0 {
		return nil, ErrEmptyWindow
	}

	report := &Report{
		RunID:    uuid.NewString(),
		Overview: overview(tx),
	}
	logger = logger.With(zap.String("run_id", report.RunID))
	logger.Info("pipeline start",
		zap.Int("transactions", report.Overview.Transactions),
		zap.Int("customers", report.Overview.Customers),
		zap.Int("products", report.Overview.Products))

	var bar *progressbar.ProgressBar
	if cfg.Progress {
		bar = progressbar.Default(3, "analyse")
	}
	done := func(stage string, start time.Time) {
		if bar != nil {
			_ = bar.Add(1)
		}
		logger.Debug("stage done", zap.String("stage", stage), zap.Duration("elapsed", time.Since(start)))
	}

	// chaque goroutine n'écrit que ses propres variables ; la table est partagée en lecture seule
	var segErr, basketErr, fcErr error
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		start := time.Now()
		res, err := segment.SegmentTransactions(tx, cfg.Clusters, cfg.Seed)
		if err != nil {
			segErr = err
		} else {
			report.Segmentation = &res
		}
		done(StageSegmentation, start)
		return nil
	})

	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		start := time.Now()
		model, err := basket.Build(tx, basket.Options{MinSupport: cfg.MinSupport, MinConfidence: cfg.MinConfidence})
		if err != nil {
			basketErr = err
		} else {
			report.model = model
			report.Basket = &BasketSummary{Itemsets: model.Itemsets(), Rules: model.Rules()}
		}
		done(StageBasket, start)
		return nil
	})

	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return err
		}
		start := time.Now()
		res, err := forecast.Forecast(tx, forecast.Options{MinMonths: cfg.MinHistoryMonths, Horizon: cfg.ForecastHorizon})
		fcErr = err
		// en échec, l'historique mensuel reste publié, sans points de prévision
		report.Forecast = &res
		done(StageForecast, start)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	for _, se := range []struct {
		stage string
		err   error
	}{
		{StageSegmentation, segErr},
		{StageBasket, basketErr},
		{StageForecast, fcErr},
	} {
		if se.err == nil {
			continue
		}
		e := StageError{Stage: se.stage, Kind: errorKind(se.err), Message: se.err.Error()}
		report.Errors = append(report.Errors, e)
		logger.Warn("stage failed", zap.String("stage", e.Stage), zap.String("kind", e.Kind), zap.Error(se.err))
	}

	logger.Info("pipeline done", zap.Int("stage_errors", len(report.Errors)))
	return report, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, segment.ErrClusterCount):
		return "cluster_count"
	case errors.Is(err, segment.ErrTooFewCustomers):
		return "too_few_customers"
	case errors.Is(err, segment.ErrNoFeatures):
		return "no_customers"
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, forecast.ErrModelFit):
		return "model_fit_failure"
	default:
		return "error"
	}
}

// filterWindow garde les transactions dont le mois est dans [start, end] (MMYYYY, bornes optionnelles).
func filterWindow(tx []models.Transaction, startMonth, endMonth string) ([]models.Transaction, error) {
	if startMonth == "" && endMonth == "" {
		return tx, nil
	}
	var start, end time.Time
	var err error
	if startMonth != "" {
		if start, err = forecast.ParseMonth(startMonth); err != nil {
			return nil, fmt.Errorf("start_month: %w", err)
		}
	}
	if endMonth != "" {
		if end, err = forecast.ParseMonth(endMonth); err != nil {
			return nil, fmt.Errorf("end_month: %w", err)
		}
	}
	if startMonth != "" && endMonth != "" && end.Before(start) {
		return nil, fmt.Errorf("end_month < start_month")
	}

	out := make([]models.Transaction, 0, len(tx))
	for _, t := range tx {
		m := forecast.MonthStart(t.Date)
		if startMonth != "" && m.Before(start) {
			continue
		}
		if endMonth != "" && m.After(end) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func overview(tx []models.Transaction) Overview {
	customers := make(map[string]struct{})
	products := make(map[string]struct{})
	ov := Overview{Transactions: len(tx)}
	for i, t := range tx {
		customers[t.CustomerID] = struct{}{}
		products[t.Product] = struct{}{}
		ov.TotalSales += t.Sales()
		if i == 0 || t.Date.Before(ov.FirstDate) {
			ov.FirstDate = t.Date
		}
		if i == 0 || t.Date.After(ov.LastDate) {
			ov.LastDate = t.Date
		}
	}
	ov.Customers = len(customers)
	ov.Products = len(products)
	return ov
}
