package service

import (
	"context"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/logger"
	"github.com/nomadz/paygate/internal/token"
)

type TokenBalance struct {
	Address model.Pubkey `json:"address"`
	Owner   model.Pubkey `json:"owner"`
	Mint    model.Pubkey `json:"mint"`
	Amount  uint64       `json:"amount,string"`
}

type TokenService struct {
	ledger ledger.Ledger
}

func NewTokenService(l ledger.Ledger) *TokenService {
	return &TokenService{ledger: l}
}

func (s *TokenService) Balance(ctx context.Context, owner, mint model.Pubkey) (*TokenBalance, error) {
	out := &TokenBalance{Address: token.AssociatedAddress(owner, mint), Owner: owner, Mint: mint}
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		var err error
		out.Amount, err = token.Balance(tx, owner, mint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Mint credits owner's associated account. Only exposed for local funding.
func (s *TokenService) Mint(ctx context.Context, owner, mint model.Pubkey, amount uint64) (*TokenBalance, error) {
	out := &TokenBalance{Address: token.AssociatedAddress(owner, mint), Owner: owner, Mint: mint}
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		acct, err := token.MintTo(tx, owner, mint, amount)
		if err != nil {
			return err
		}
		out.Amount = acct.Amount
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Tokens minted", "owner", owner.String(), "mint", mint.String(), "amount", amount, "balance", out.Amount)
	return out, nil
}
