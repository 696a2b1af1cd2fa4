package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadz/paygate/internal/pkg/metrics"
)

func TestSettlementMetrics(t *testing.T) {
	f := newFixture(t)
	f.initialize(t, 100, usdc)
	f.fund(t, payer, usdc, 5_000)

	mint := usdc.String()
	settledBefore := testutil.ToFloat64(metrics.SettlementsTotal.WithLabelValues(mint))
	feeBefore := testutil.ToFloat64(metrics.SettledVolume.WithLabelValues(mint, "fee"))
	rejectsBefore := testutil.ToFloat64(metrics.Rejects.WithLabelValues("settle_booking_payment", "ALREADY_SETTLED"))

	rec := f.create(t, "metrics-hotel", "metrics-user", 1_000)
	_, err := f.bookings.SettleBookingPayment(context.Background(), f.settleReq(rec))
	require.NoError(t, err)
	_, err = f.bookings.SettleBookingPayment(context.Background(), f.settleReq(rec))
	require.Error(t, err)

	assert.Equal(t, settledBefore+1, testutil.ToFloat64(metrics.SettlementsTotal.WithLabelValues(mint)))
	assert.Equal(t, feeBefore+10, testutil.ToFloat64(metrics.SettledVolume.WithLabelValues(mint, "fee")))
	assert.Equal(t, rejectsBefore+1, testutil.ToFloat64(metrics.Rejects.WithLabelValues("settle_booking_payment", "ALREADY_SETTLED")))
}
