package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-insights/pkg/models"
)

// monthlyTx : une transaction par mois à partir de janvier 2023, ventes = values[i].
func monthlyTx(values ...float64) []models.Transaction {
	start := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	out := make([]models.Transaction, len(values))
	for i, v := range values {
		out[i] = models.Transaction{
			CustomerID: "c",
			Product:    "p",
			Quantity:   1,
			Date:       start.AddDate(0, i, 0),
			Price:      v,
		}
	}
	return out
}

func TestMonthlySeries_SumsAndOrders(t *testing.T) {
	tx := []models.Transaction{
		{CustomerID: "a", Product: "x", Quantity: 2, Price: 3, Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{CustomerID: "b", Product: "y", Quantity: 1, Price: 10, Date: time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)},
		{CustomerID: "a", Product: "y", Quantity: 4, Price: 0.5, Date: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)},
	}
	got := MonthlySeries(tx)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[0].MonthStart)
	assert.Equal(t, 10.0, got[0].Sales)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got[1].MonthStart)
	assert.Equal(t, 8.0, got[1].Sales)
	assert.Equal(t, 1, MissingMonths(got))
}

func TestMonthlySeries_RoundTripTotal(t *testing.T) {
	var tx []models.Transaction
	for i := 0; i < 200; i++ {
		tx = append(tx, models.Transaction{
			CustomerID: "c",
			Product:    "p",
			Quantity:   float64(i%7 + 1),
			Price:      float64(i%13) + 0.25,
			Date:       time.Date(2022, time.Month(i%12+1), i%28+1, 0, 0, 0, 0, time.UTC).AddDate(i%3, 0, 0),
		})
	}
	want := 0.0
	for _, r := range tx {
		want += r.Quantity * r.Price
	}
	got := 0.0
	for _, m := range MonthlySeries(tx) {
		got += m.Sales
	}
	assert.InDelta(t, want, got, 1e-6)
}

func TestForecast_FiveMonthsIsInsufficient(t *testing.T) {
	res, err := Forecast(monthlyTx(10, 20, 15, 30, 25), Options{})
	require.ErrorIs(t, err, ErrInsufficientHistory)
	assert.NotErrorIs(t, err, ErrModelFit)
	assert.Empty(t, res.Points)
	assert.Len(t, res.History, 5)
}

func TestForecast_FourMonthsIsInsufficient(t *testing.T) {
	res, err := Forecast(monthlyTx(1, 2, 3, 4), Options{})
	require.ErrorIs(t, err, ErrInsufficientHistory)
	assert.Empty(t, res.Points)
}

func TestForecast_SixMonthsAttemptsFit(t *testing.T) {
	res, err := Forecast(monthlyTx(100, 130, 120, 160, 150, 190), Options{})
	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	require.NotNil(t, res.Model)

	last := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range res.Points {
		assert.Equal(t, last.AddDate(0, i+1, 0), p.MonthStart)
		assert.False(t, math.IsNaN(p.PredictedSales) || math.IsInf(p.PredictedSales, 0))
	}
	assert.Less(t, math.Abs(res.Model.Phi), 1.0)
	assert.Less(t, math.Abs(res.Model.Theta), 1.0)
}

func TestForecast_FlatSeriesIsFitFailure(t *testing.T) {
	_, err := Forecast(monthlyTx(0, 0, 0, 0, 0, 0), Options{})
	require.ErrorIs(t, err, ErrModelFit)
	assert.NotErrorIs(t, err, ErrInsufficientHistory)
}

func TestForecast_SingleSpikeIsFitFailure(t *testing.T) {
	for _, levels := range [][]float64{
		{0, 0, 0, 100, 0, 0},
		{0, 0, 0, 0, 0, 100},
	} {
		res, err := Forecast(monthlyTx(levels...), Options{})
		require.ErrorIs(t, err, ErrModelFit, "%v", levels)
		assert.Empty(t, res.Points)
		assert.Len(t, res.History, 6)
	}
}

func TestForecast_LinearTrendContinues(t *testing.T) {
	res, err := Forecast(monthlyTx(100, 110, 120, 130, 140, 150, 160), Options{})
	require.NoError(t, err)
	require.Len(t, res.Points, 3)
	assert.InDelta(t, 170, res.Points[0].PredictedSales, 1)
	assert.InDelta(t, 180, res.Points[1].PredictedSales, 1)
	assert.InDelta(t, 190, res.Points[2].PredictedSales, 1)
}

func TestForecast_CustomHorizon(t *testing.T) {
	res, err := Forecast(monthlyTx(5, 9, 4, 12, 7, 15, 8, 18), Options{Horizon: 5})
	require.NoError(t, err)
	assert.Len(t, res.Points, 5)
}

func TestARIMA_ForecastRecursion(t *testing.T) {
	m := &ARIMA111{Phi: 0.5, Theta: 0.2, last: 100, lastDiff: 10, lastErr: 5}
	got := m.Forecast(3)
	// d1 = 0.5*10 + 0.2*5 = 6 ; d2 = 3 ; d3 = 1.5
	assert.InDeltaSlice(t, []float64{106, 109, 110.5}, got, 1e-12)
}
