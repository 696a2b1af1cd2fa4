package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

func tokens(n int) []model.Pubkey {
	out := make([]model.Pubkey, n)
	for i := range out {
		out[i] = key(byte(100 + i))
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestInitializeConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.config.GetConfig(ctx)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigNotInitialized))

	f.initialize(t, 250, usdc, eurc)
	cfg, err := f.config.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin, cfg.Admin)
	assert.Equal(t, feeVault, cfg.FeeVault)
	assert.Equal(t, destVault, cfg.DestinationVault)
	assert.Equal(t, uint16(250), cfg.BookingFeeBps)
	assert.Equal(t, []model.Pubkey{usdc, eurc}, cfg.AllowedPaymentTokens)
	assert.Equal(t, []string{EventConfigInitialized}, f.events.types())

	_, err = f.config.Initialize(ctx, InitializeConfigRequest{
		Initializer: admin, Admin: stranger, FeeVault: feeVault, DestinationVault: destVault,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConfigAlreadyInitialized))
	cfg, err = f.config.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, admin, cfg.Admin)
}

func TestInitializeConfigValidation(t *testing.T) {
	base := InitializeConfigRequest{
		Initializer: admin, Admin: admin, FeeVault: feeVault, DestinationVault: destVault,
	}
	cases := []struct {
		name   string
		mutate func(*InitializeConfigRequest)
		want   apperrors.ErrorType
	}{
		{"too many tokens", func(r *InitializeConfigRequest) { r.AllowedPaymentTokens = tokens(model.MaxAllowedTokens + 1) }, apperrors.ErrTooManyPaymentTokens},
		{"fee above 100%", func(r *InitializeConfigRequest) { r.BookingFeeBps = model.MaxFeeBps + 1 }, apperrors.ErrInvalidFeeBps},
		{"missing admin", func(r *InitializeConfigRequest) { r.Admin = model.Pubkey{} }, apperrors.ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			req := base
			tc.mutate(&req)
			_, err := f.config.Initialize(context.Background(), req)
			assert.True(t, apperrors.Is(err, tc.want), "got %v", err)

			_, err = f.config.GetConfig(context.Background())
			assert.True(t, apperrors.Is(err, apperrors.ErrConfigNotInitialized))
		})
	}

	f := newFixture(t)
	req := base
	req.AllowedPaymentTokens = tokens(model.MaxAllowedTokens)
	req.BookingFeeBps = model.MaxFeeBps
	_, err := f.config.Initialize(context.Background(), req)
	assert.NoError(t, err)
}

func TestInitializeConfigInitializerAllowlist(t *testing.T) {
	f := newFixture(t)
	f.config = NewConfigService(f.ledger, []model.Pubkey{admin})

	_, err := f.config.Initialize(context.Background(), InitializeConfigRequest{
		Initializer: stranger, Admin: stranger, FeeVault: feeVault, DestinationVault: destVault,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, err = f.config.Initialize(context.Background(), InitializeConfigRequest{
		Initializer: admin, Admin: admin, FeeVault: feeVault, DestinationVault: destVault,
	})
	assert.NoError(t, err)
}

func TestUpdateConfigRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.initialize(t, 250, usdc)

	_, err := f.config.UpdateConfig(context.Background(), stranger, ConfigPatch{NewBookingFeeBps: ptr(uint16(0))}, ConfigConfirmations{})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAdminPubkey))

	cfg, err := f.config.GetConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(250), cfg.BookingFeeBps)
}

func TestUpdateConfigConfirmations(t *testing.T) {
	cases := []struct {
		name    string
		patch   ConfigPatch
		confirm ConfigConfirmations
		want    apperrors.ErrorType
	}{
		{"admin missing confirmation", ConfigPatch{NewAdmin: ptr(stranger)}, ConfigConfirmations{}, apperrors.ErrNewAdminPubkeyMismatch},
		{"admin wrong confirmation", ConfigPatch{NewAdmin: ptr(stranger)}, ConfigConfirmations{Admin: ptr(payer)}, apperrors.ErrNewAdminPubkeyMismatch},
		{"fee vault mismatch", ConfigPatch{NewFeeVault: ptr(stranger)}, ConfigConfirmations{FeeVault: ptr(payer)}, apperrors.ErrNewFeeVaultPubkeyMismatch},
		{"destination vault mismatch", ConfigPatch{NewDestinationVault: ptr(stranger)}, ConfigConfirmations{}, apperrors.ErrNewDestinationVaultPubkeyMismatch},
		{"too many tokens", ConfigPatch{NewAllowedPaymentTokens: ptr(tokens(model.MaxAllowedTokens + 1))}, ConfigConfirmations{}, apperrors.ErrTooManyPaymentTokens},
		{"fee above 100%", ConfigPatch{NewBookingFeeBps: ptr(uint16(10_001))}, ConfigConfirmations{}, apperrors.ErrInvalidFeeBps},
		{
			"valid fields are not applied when another fails",
			ConfigPatch{NewBookingFeeBps: ptr(uint16(500)), NewFeeVault: ptr(stranger), NewDestinationVault: ptr(stranger)},
			ConfigConfirmations{FeeVault: ptr(stranger), DestinationVault: ptr(payer)},
			apperrors.ErrNewDestinationVaultPubkeyMismatch,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.initialize(t, 250, usdc)
			before, err := f.config.GetConfig(context.Background())
			require.NoError(t, err)

			_, err = f.config.UpdateConfig(context.Background(), admin, tc.patch, tc.confirm)
			assert.True(t, apperrors.Is(err, tc.want), "got %v", err)

			after, err := f.config.GetConfig(context.Background())
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestUpdateConfigAppliesPatch(t *testing.T) {
	f := newFixture(t)
	f.initialize(t, 250, usdc)
	newAdmin, newFee, newDest := key(20), key(21), key(22)

	cfg, err := f.config.UpdateConfig(context.Background(), admin, ConfigPatch{
		NewAdmin:                &newAdmin,
		NewFeeVault:             &newFee,
		NewDestinationVault:     &newDest,
		NewBookingFeeBps:        ptr(uint16(100)),
		NewAllowedPaymentTokens: ptr([]model.Pubkey{eurc}),
	}, ConfigConfirmations{Admin: &newAdmin, FeeVault: &newFee, DestinationVault: &newDest})
	require.NoError(t, err)
	assert.Equal(t, newAdmin, cfg.Admin)
	assert.Equal(t, newFee, cfg.FeeVault)
	assert.Equal(t, newDest, cfg.DestinationVault)
	assert.Equal(t, uint16(100), cfg.BookingFeeBps)
	assert.Equal(t, []model.Pubkey{eurc}, cfg.AllowedPaymentTokens)

	// the old admin lost control
	_, err = f.config.UpdateConfig(context.Background(), admin, ConfigPatch{NewBookingFeeBps: ptr(uint16(0))}, ConfigConfirmations{})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidAdminPubkey))

	// an empty list clears the allowlist, a nil list leaves it alone
	cfg, err = f.config.UpdateConfig(context.Background(), newAdmin, ConfigPatch{NewAllowedPaymentTokens: ptr([]model.Pubkey{})}, ConfigConfirmations{})
	require.NoError(t, err)
	assert.Empty(t, cfg.AllowedPaymentTokens)
	assert.Equal(t, uint16(100), cfg.BookingFeeBps)
}

func TestAllowlistNeverExceedsCap(t *testing.T) {
	f := newFixture(t)
	f.initialize(t, 0, tokens(model.MaxAllowedTokens)...)
	ctx := context.Background()

	for n := 0; n <= model.MaxAllowedTokens+3; n++ {
		_, _ = f.config.UpdateConfig(ctx, admin, ConfigPatch{NewAllowedPaymentTokens: ptr(tokens(n))}, ConfigConfirmations{})
		cfg, err := f.config.GetConfig(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(cfg.AllowedPaymentTokens), model.MaxAllowedTokens)
	}
	cfg, err := f.config.GetConfig(ctx)
	require.NoError(t, err)
	assert.Len(t, cfg.AllowedPaymentTokens, model.MaxAllowedTokens)
}
