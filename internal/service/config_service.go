package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/pkg/logger"
	"github.com/nomadz/paygate/internal/pkg/metrics"
)

type InitializeConfigRequest struct {
	Initializer          model.Pubkey
	Admin                model.Pubkey
	FeeVault             model.Pubkey
	DestinationVault     model.Pubkey
	BookingFeeBps        uint16
	AllowedPaymentTokens []model.Pubkey
}

// ConfigPatch holds the optional fields of a config update. A nil field is
// left unchanged; a non-nil empty token list clears the allowlist.
type ConfigPatch struct {
	NewAdmin                *model.Pubkey
	NewFeeVault             *model.Pubkey
	NewDestinationVault     *model.Pubkey
	NewBookingFeeBps        *uint16
	NewAllowedPaymentTokens *[]model.Pubkey
}

// ConfigConfirmations repeats every identity being changed. Each must match
// the patch exactly or the update is refused.
type ConfigConfirmations struct {
	Admin            *model.Pubkey
	FeeVault         *model.Pubkey
	DestinationVault *model.Pubkey
}

type ConfigService struct {
	ledger       ledger.Ledger
	initializers []model.Pubkey
	emitter      Emitter
}

// NewConfigService creates the config store. When initializers is non-empty
// only those keys may initialize the config.
func NewConfigService(l ledger.Ledger, initializers []model.Pubkey) *ConfigService {
	return &ConfigService{
		ledger:       l,
		initializers: initializers,
		emitter:      NoopEmitter{},
	}
}

func (s *ConfigService) SetEmitter(emitter Emitter) {
	if emitter == nil {
		s.emitter = NoopEmitter{}
		return
	}
	s.emitter = emitter
}

func (s *ConfigService) Initialize(ctx context.Context, req InitializeConfigRequest) (*model.Config, error) {
	cfg, err := s.initialize(ctx, req)
	if err != nil {
		metrics.Rejects.WithLabelValues("initialize_config", errorCode(err)).Inc()
		return nil, err
	}

	logger.Info("Config initialized",
		"initializer", req.Initializer.String(),
		"admin", cfg.Admin.String(),
		"fee_vault", cfg.FeeVault.String(),
		"destination_vault", cfg.DestinationVault.String(),
		"booking_fee_bps", cfg.BookingFeeBps,
		"allowed_payment_tokens", pubkeyStrings(cfg.AllowedPaymentTokens),
	)
	evt := newEvent(EventConfigInitialized)
	evt.Config = cfg.Clone()
	s.emitter.Emit(ctx, evt)
	return cfg, nil
}

func (s *ConfigService) initialize(ctx context.Context, req InitializeConfigRequest) (*model.Config, error) {
	if len(s.initializers) > 0 && !model.ContainsPubkey(s.initializers, req.Initializer) {
		return nil, apperrors.NewForbidden("initializer is not allowed to initialize the config")
	}
	if len(req.AllowedPaymentTokens) > model.MaxAllowedTokens {
		return nil, tooManyPaymentTokens(len(req.AllowedPaymentTokens))
	}
	if req.BookingFeeBps > model.MaxFeeBps {
		return nil, invalidFeeBps(req.BookingFeeBps)
	}
	if req.Admin.IsZero() || req.FeeVault.IsZero() || req.DestinationVault.IsZero() {
		return nil, apperrors.NewInvalidRequest("admin, fee_vault and destination_vault are required")
	}

	cfg := &model.Config{
		BookingFeeBps:        req.BookingFeeBps,
		Admin:                req.Admin,
		FeeVault:             req.FeeVault,
		DestinationVault:     req.DestinationVault,
		AllowedPaymentTokens: append([]model.Pubkey{}, req.AllowedPaymentTokens...),
	}
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		_, err := tx.GetAccount(ConfigAddress())
		if err == nil {
			return apperrors.New(apperrors.ErrConfigAlreadyInitialized, "config is already initialized", nil)
		}
		if !errors.Is(err, ledger.ErrAccountNotFound) {
			return err
		}
		return storeConfig(tx, cfg)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// UpdateConfig validates the whole patch against the current config and
// applies it in one unit. Nothing changes if any check fails.
func (s *ConfigService) UpdateConfig(ctx context.Context, caller model.Pubkey, patch ConfigPatch, confirm ConfigConfirmations) (*model.Config, error) {
	var before, after *model.Config
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if caller != cfg.Admin {
			return apperrors.New(apperrors.ErrInvalidAdminPubkey, "caller is not the config admin", nil)
		}
		if err := validatePatch(patch, confirm); err != nil {
			return err
		}
		before = cfg.Clone()
		applyPatch(cfg, patch)
		after = cfg
		return storeConfig(tx, cfg)
	})
	if err != nil {
		metrics.Rejects.WithLabelValues("update_config", errorCode(err)).Inc()
		return nil, err
	}

	logConfigChanges(caller, before, after, patch)
	evt := newEvent(EventConfigUpdated)
	evt.Config = after.Clone()
	s.emitter.Emit(ctx, evt)
	return after, nil
}

func (s *ConfigService) GetConfig(ctx context.Context) (*model.Config, error) {
	var cfg *model.Config
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		var err error
		cfg, err = loadConfig(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func validatePatch(patch ConfigPatch, confirm ConfigConfirmations) error {
	if patch.NewAllowedPaymentTokens != nil && len(*patch.NewAllowedPaymentTokens) > model.MaxAllowedTokens {
		return tooManyPaymentTokens(len(*patch.NewAllowedPaymentTokens))
	}
	if patch.NewAdmin != nil && !confirmed(patch.NewAdmin, confirm.Admin) {
		return apperrors.New(apperrors.ErrNewAdminPubkeyMismatch, "new admin does not match the confirmed admin", nil)
	}
	if patch.NewFeeVault != nil && !confirmed(patch.NewFeeVault, confirm.FeeVault) {
		return apperrors.New(apperrors.ErrNewFeeVaultPubkeyMismatch, "new fee vault does not match the confirmed fee vault", nil)
	}
	if patch.NewDestinationVault != nil && !confirmed(patch.NewDestinationVault, confirm.DestinationVault) {
		return apperrors.New(apperrors.ErrNewDestinationVaultPubkeyMismatch, "new destination vault does not match the confirmed destination vault", nil)
	}
	if patch.NewBookingFeeBps != nil && *patch.NewBookingFeeBps > model.MaxFeeBps {
		return invalidFeeBps(*patch.NewBookingFeeBps)
	}
	return nil
}

func confirmed(value, confirmation *model.Pubkey) bool {
	return confirmation != nil && *confirmation == *value
}

func applyPatch(cfg *model.Config, patch ConfigPatch) {
	if patch.NewAllowedPaymentTokens != nil {
		cfg.AllowedPaymentTokens = append([]model.Pubkey{}, (*patch.NewAllowedPaymentTokens)...)
	}
	if patch.NewAdmin != nil {
		cfg.Admin = *patch.NewAdmin
	}
	if patch.NewFeeVault != nil {
		cfg.FeeVault = *patch.NewFeeVault
	}
	if patch.NewDestinationVault != nil {
		cfg.DestinationVault = *patch.NewDestinationVault
	}
	if patch.NewBookingFeeBps != nil {
		cfg.BookingFeeBps = *patch.NewBookingFeeBps
	}
}

func logConfigChanges(caller model.Pubkey, before, after *model.Config, patch ConfigPatch) {
	log := logger.With("caller", caller.String())
	if patch.NewAllowedPaymentTokens != nil {
		metrics.ConfigUpdates.WithLabelValues("allowed_payment_tokens").Inc()
		log.Info("Allowed payment tokens updated",
			"old", pubkeyStrings(before.AllowedPaymentTokens),
			"new", pubkeyStrings(after.AllowedPaymentTokens))
	}
	if patch.NewAdmin != nil {
		metrics.ConfigUpdates.WithLabelValues("admin").Inc()
		log.Info("Admin updated", "old", before.Admin.String(), "new", after.Admin.String())
	}
	if patch.NewFeeVault != nil {
		metrics.ConfigUpdates.WithLabelValues("fee_vault").Inc()
		log.Info("Fee vault updated", "old", before.FeeVault.String(), "new", after.FeeVault.String())
	}
	if patch.NewDestinationVault != nil {
		metrics.ConfigUpdates.WithLabelValues("destination_vault").Inc()
		log.Info("Destination vault updated", "old", before.DestinationVault.String(), "new", after.DestinationVault.String())
	}
	if patch.NewBookingFeeBps != nil {
		metrics.ConfigUpdates.WithLabelValues("booking_fee_bps").Inc()
		log.Info("Booking fee bps updated", "old", before.BookingFeeBps, "new", after.BookingFeeBps)
	}
}

func tooManyPaymentTokens(n int) error {
	return apperrors.New(apperrors.ErrTooManyPaymentTokens,
		fmt.Sprintf("%d payment tokens exceeds the maximum of %d", n, model.MaxAllowedTokens), nil)
}

func invalidFeeBps(bps uint16) error {
	return apperrors.New(apperrors.ErrInvalidFeeBps,
		fmt.Sprintf("booking fee bps %d exceeds %d", bps, model.MaxFeeBps), nil)
}

func pubkeyStrings(keys []model.Pubkey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
