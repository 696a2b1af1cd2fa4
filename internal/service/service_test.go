package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/token"
)

func key(b byte) model.Pubkey {
	var p model.Pubkey
	p[0] = 0xA0
	p[31] = b
	return p
}

var (
	admin       = key(1)
	feeVault    = key(2)
	destVault   = key(3)
	payer       = key(4)
	stranger    = key(5)
	usdc        = key(10)
	eurc        = key(11)
	unknownMint = key(12)
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEmitter) Emit(_ context.Context, evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	ledger   *ledger.MemLedger
	config   *ConfigService
	bookings *BookingService
	tokens   *TokenService
	events   *recordingEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l := ledger.NewMemLedger()
	f := &fixture{
		ledger:   l,
		config:   NewConfigService(l, nil),
		bookings: NewBookingService(l, nil),
		tokens:   NewTokenService(l),
		events:   &recordingEmitter{},
	}
	f.config.SetEmitter(f.events)
	f.bookings.SetEmitter(f.events)
	return f
}

func (f *fixture) initialize(t *testing.T, feeBps uint16, mints ...model.Pubkey) {
	t.Helper()
	_, err := f.config.Initialize(context.Background(), InitializeConfigRequest{
		Initializer:          admin,
		Admin:                admin,
		FeeVault:             feeVault,
		DestinationVault:     destVault,
		BookingFeeBps:        feeBps,
		AllowedPaymentTokens: mints,
	})
	require.NoError(t, err)
}

func (f *fixture) fund(t *testing.T, owner, mint model.Pubkey, amount uint64) {
	t.Helper()
	_, err := f.tokens.Mint(context.Background(), owner, mint, amount)
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, owner, mint model.Pubkey) uint64 {
	t.Helper()
	bal, err := f.tokens.Balance(context.Background(), owner, mint)
	require.NoError(t, err)
	return bal.Amount
}

func (f *fixture) create(t *testing.T, hotelID, userID string, amount uint64) *BookingPaymentRecord {
	t.Helper()
	rec, _, err := f.bookings.CreateBookingPayment(context.Background(), CreateBookingPaymentRequest{
		Payer:       payer,
		TokenMint:   usdc,
		HotelID:     hotelID,
		UserID:      userID,
		TokenAmount: amount,
	})
	require.NoError(t, err)
	return rec
}

func (f *fixture) settleReq(rec *BookingPaymentRecord) SettleBookingPaymentRequest {
	return SettleBookingPaymentRequest{
		Admin:     admin,
		Payer:     rec.Payer,
		TokenMint: rec.TokenMint,
		Address:   rec.Address,
	}
}

func (f *fixture) status(t *testing.T, addr model.Pubkey) model.BookingPaymentStatus {
	t.Helper()
	rec, err := f.bookings.GetBookingPayment(context.Background(), addr)
	require.NoError(t, err)
	return rec.Status
}

func (f *fixture) delegate(t *testing.T, addr model.Pubkey) {
	t.Helper()
	require.NoError(t, f.ledger.Execute(context.Background(), func(tx ledger.Tx) error {
		return ledger.Delegate(tx, addr)
	}))
}

func (f *fixture) setRecipientBalance(t *testing.T, owner, mint model.Pubkey, amount uint64) {
	t.Helper()
	require.NoError(t, f.ledger.Execute(context.Background(), func(tx ledger.Tx) error {
		_, err := token.MintTo(tx, owner, mint, amount)
		return err
	}))
}
