package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"market-insights/pkg/config"
	"market-insights/pkg/models"
	"market-insights/pkg/normalize"
)

// dataset : 12 clients sur `months` mois, pain et beurre toujours achetés ensemble.
func dataset(months int) []models.Transaction {
	var tx []models.Transaction
	start := time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC)
	for c := 0; c < 12; c++ {
		id := fmt.Sprintf("C%02d", c)
		for m := 0; m < months; m++ {
			date := start.AddDate(0, m, c%5)
			qty := float64(c%4 + 1)
			price := float64(c*c%17 + 2 + (m*m)%5)
			tx = append(tx,
				models.Transaction{CustomerID: id, Product: "bread", Quantity: qty, Date: date, Price: price},
				models.Transaction{CustomerID: id, Product: "butter", Quantity: 1, Date: date, Price: price / 2},
			)
			if (c+m)%3 == 0 {
				tx = append(tx, models.Transaction{CustomerID: id, Product: "jam", Quantity: 1, Date: date, Price: 3})
			}
		}
	}
	return tx
}

func testConfig() models.Config {
	var cfg models.Config
	config.ApplyDefaults(&cfg)
	return cfg
}

func TestRun_AllStagesSucceed(t *testing.T) {
	report, err := Run(context.Background(), dataset(8), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Empty(t, report.Errors)
	assert.NotEmpty(t, report.RunID)

	require.NotNil(t, report.Segmentation)
	assert.Equal(t, 3, report.Segmentation.K)
	assert.Len(t, report.Segmentation.Assignments, 12)

	require.NotNil(t, report.Basket)
	require.NotNil(t, report.BasketModel())
	assert.Contains(t, report.BasketModel().Recommend([]string{"bread"}), "butter")

	require.NotNil(t, report.Forecast)
	assert.Len(t, report.Forecast.Points, 3)
	assert.Len(t, report.Forecast.History, 8)

	assert.Equal(t, 12, report.Overview.Customers)
	assert.Equal(t, 3, report.Overview.Products)
}

func TestRun_ForecastFailureDoesNotBlockOthers(t *testing.T) {
	report, err := Run(context.Background(), dataset(4), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.Len(t, report.Errors, 1)
	assert.Equal(t, StageForecast, report.Errors[0].Stage)
	assert.Equal(t, "insufficient_history", report.Errors[0].Kind)
	require.NotNil(t, report.Forecast)
	assert.Len(t, report.Forecast.History, 4)
	assert.Empty(t, report.Forecast.Points)
	assert.Nil(t, report.Forecast.Model)

	assert.NotNil(t, report.Segmentation)
	assert.NotNil(t, report.Basket)
}

func TestRun_InvalidClusterCountIsStageError(t *testing.T) {
	cfg := testConfig()
	cfg.Clusters = 9
	report, err := Run(context.Background(), dataset(8), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, StageSegmentation, report.Errors[0].Stage)
	assert.Equal(t, "cluster_count", report.Errors[0].Kind)
	assert.NotNil(t, report.Forecast)
}

func TestRun_Deterministic(t *testing.T) {
	a, err := Run(context.Background(), dataset(8), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	b, err := Run(context.Background(), dataset(8), testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, a.Segmentation, b.Segmentation)
	assert.Equal(t, a.Basket, b.Basket)
}

func TestRun_MonthWindow(t *testing.T) {
	cfg := testConfig()
	cfg.StartMonthInclusive = "032023"
	cfg.EndMonthInclusive = "052023"
	report, err := Run(context.Background(), dataset(8), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, time.March, report.Overview.FirstDate.Month())
	assert.Equal(t, time.May, report.Overview.LastDate.Month())

	cfg.StartMonthInclusive = "012030"
	cfg.EndMonthInclusive = ""
	_, err = Run(context.Background(), dataset(8), cfg, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrEmptyWindow)

	cfg.StartMonthInclusive = "062023"
	cfg.EndMonthInclusive = "012023"
	_, err = Run(context.Background(), dataset(8), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)

	cfg.StartMonthInclusive = "13-2023"
	_, err = Run(context.Background(), dataset(8), cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestOverview_TotalSalesMatchesSeries(t *testing.T) {
	tx := dataset(7)
	report, err := Run(context.Background(), tx, testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NotNil(t, report.Forecast)

	sum := 0.0
	for _, m := range report.Forecast.History {
		sum += m.Sales
	}
	assert.InDelta(t, report.Overview.TotalSales, sum, 1e-6)
}

func TestPrepare(t *testing.T) {
	raw := models.RawTable{
		Columns: []string{"user", "sku", "qty", "order_date", "amount"},
		Rows: [][]string{
			{"u1", "a", "1", "2024-01-01", "2"},
			{"u2", "b", "2", "2024-01-02", "oops"},
			{"u3", "b", "2", "", "1"},
		},
	}
	mapping, _ := normalize.ResolveMapping(models.ColumnMapping{}, raw.Columns, true)
	tx, stats, err := Prepare(raw, mapping, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Len(t, tx, 2)
	assert.Equal(t, 1, stats.PriceDefaulted)
	assert.Equal(t, 1, stats.BadDates)

	_, _, err = Prepare(models.RawTable{Columns: []string{"x"}}, mapping, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, normalize.ErrUnknownColumn)
}
