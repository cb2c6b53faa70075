package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/model"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/repository"
	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/testutil"
)

// TestAlertService_Sweep tests the periodic evaluation of stored alerts.
//
// WHY: a sweep must record exactly the triggers that hold and are outside their
// cooldown. Conditions without enough data are deferred so they are picked up
// again on the next sweep instead of reported as not triggered.
func TestAlertService_Sweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	eth := testutil.NewAsset().WithSymbol("ETH").WithClass(model.AssetClassCrypto).Build(t, f.db)
	testutil.NewQuote(eth.ID, "USD").WithPrice("2200").WithTimestamp(testutil.Now.Add(-10 * time.Minute)).Build(t, f.db)

	above := testutil.NewAlert(model.AlertPriceAbove).ForAsset(f.btc.ID, "USD").WithThreshold("40000").Build(t, f.db)
	testutil.NewAlert(model.AlertPriceAbove).ForAsset(f.btc.ID, "USD").WithThreshold("1").Paused().Build(t, f.db)
	testutil.NewAlert(model.AlertPercentChange).ForAsset(eth.ID, "USD").WithThreshold("5").Build(t, f.db)
	cooling := testutil.NewAlert(model.AlertPriceBelow).ForAsset(f.btc.ID, "USD").WithThreshold("100000").
		TriggeredAt(testutil.Now.Add(-10 * time.Minute)).Build(t, f.db)
	drawdown := testutil.NewAlert(model.AlertPortfolioDrawdown).ForPortfolio(f.portfolio.ID).WithThreshold("50").Build(t, f.db)

	result, err := testutil.NewTestAlertService(t, f.db).Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 1, result.CoolingOff)
	assert.Equal(t, 1, result.Deferred)
	assert.Equal(t, 0, result.Failed)

	repo := repository.NewAlertRepository(f.db)

	stored, err := repo.GetAlertOnID(ctx, above.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastTriggeredAt)
	assert.True(t, stored.LastTriggeredAt.Equal(testutil.Now))

	stored, err = repo.GetAlertOnID(ctx, cooling.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastTriggeredAt)
	assert.True(t, stored.LastTriggeredAt.Equal(testutil.Now.Add(-10*time.Minute)), "cooldown must not move the trigger time")

	stored, err = repo.GetAlertOnID(ctx, drawdown.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastTriggeredAt)
}

func TestAlertService_Evaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("target pnl across the portfolio", func(t *testing.T) {
		f := newFixture(t)
		cond := testutil.NewAlert(model.AlertTargetPnl).ForPortfolio(f.portfolio.ID).WithThreshold("10000").Model()

		eval, err := testutil.NewTestAlertService(t, f.db).Evaluate(ctx, cond)
		require.NoError(t, err)
		assert.True(t, eval.Triggered)
		assert.Equal(t, "16000", eval.MeasuredValue.String())
		assert.True(t, eval.EvaluatedAt.Equal(testutil.Now))
	})

	t.Run("drawdown from the recent peak", func(t *testing.T) {
		f := newFixture(t)
		testutil.NewQuote(f.btc.ID, "USD").WithPrice("21500").WithTimestamp(testutil.Now.Add(-time.Hour)).Build(t, f.db)
		cond := testutil.NewAlert(model.AlertPortfolioDrawdown).ForPortfolio(f.portfolio.ID).
			WithThreshold("40").WithLookback(3 * 24 * time.Hour).Model()

		eval, err := testutil.NewTestAlertService(t, f.db).Evaluate(ctx, cond)
		require.NoError(t, err)
		assert.Equal(t, "48.80952381", eval.MeasuredValue.String())
		assert.True(t, eval.Triggered)
	})

	t.Run("invalid condition is rejected before loading data", func(t *testing.T) {
		f := newFixture(t)
		cond := testutil.NewAlert(model.AlertPriceAbove).ForPortfolio(f.portfolio.ID).Model()

		_, err := testutil.NewTestAlertService(t, f.db).Evaluate(ctx, cond)
		require.ErrorIs(t, err, apperrors.ErrInvalidAlertCondition)
	})

	t.Run("stored evaluation leaves the condition untouched", func(t *testing.T) {
		f := newFixture(t)
		a := testutil.NewAlert(model.AlertPriceAbove).ForAsset(f.btc.ID, "USD").WithThreshold("40000").Build(t, f.db)
		svc := testutil.NewTestAlertService(t, f.db)

		eval, err := svc.EvaluateStored(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, eval.Triggered)

		stored, err := repository.NewAlertRepository(f.db).GetAlertOnID(ctx, a.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.LastTriggeredAt)
	})

	t.Run("unknown stored alert", func(t *testing.T) {
		f := newFixture(t)
		_, err := testutil.NewTestAlertService(t, f.db).EvaluateStored(ctx, testutil.MakeID())
		require.ErrorIs(t, err, apperrors.ErrAlertNotFound)
	})
}
