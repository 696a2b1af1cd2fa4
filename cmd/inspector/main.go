// Command inspector is a local helper for paygate clients: it generates keys,
// derives booking payment addresses and produces the signature headers the
// server expects.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcutil/base58"
	"github.com/spf13/pflag"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/service"
	"github.com/nomadz/paygate/internal/signer"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "keygen":
		err = keygen()
	case "derive":
		err = derive(os.Args[2:])
	case "sign":
		err = sign(os.Args[2:])
	case "approve":
		err = approve(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: inspector keygen|derive|sign|approve [flags]")
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keygen() error {
	s, err := signer.Generate()
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"pubkey":      s.Pubkey().String(),
		"private_key": base58.Encode(s.PrivateKey()),
	})
}

func derive(args []string) error {
	fs := pflag.NewFlagSet("derive", pflag.ContinueOnError)
	payerRaw := fs.String("payer", "", "payer pubkey (base58)")
	hotelID := fs.String("hotel", "", "hotel id")
	userID := fs.String("user", "", "user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	payer, err := model.ParsePubkey(*payerRaw)
	if err != nil {
		return err
	}
	addr, bump := service.BookingPaymentAddress(payer, *hotelID, *userID)
	return printJSON(map[string]interface{}{
		"booking_payment": addr,
		"bump":            bump,
		"config":          service.ConfigAddress(),
	})
}

func sign(args []string) error {
	fs := pflag.NewFlagSet("sign", pflag.ContinueOnError)
	key := fs.String("key", "", "private key (base58)")
	method := fs.String("method", "POST", "HTTP method")
	path := fs.String("path", "", "request path, e.g. /v1/bookings")
	nonce := fs.Uint64("nonce", 1, "request nonce")
	body := fs.String("body", "", "exact request body")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := signer.NewSigner(*key)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"X-Signer":    s.Pubkey().String(),
		"X-Nonce":     fmt.Sprintf("%d", *nonce),
		"X-Signature": s.SignRequest(*method, *path, *nonce, []byte(*body)).String(),
	})
}

func approve(args []string) error {
	fs := pflag.NewFlagSet("approve", pflag.ContinueOnError)
	key := fs.String("key", "", "payer private key (base58)")
	record := fs.String("record", "", "booking payment address (base58)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := signer.NewSigner(*key)
	if err != nil {
		return err
	}
	addr, err := model.ParsePubkey(*record)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"payer":           s.Pubkey().String(),
		"payer_signature": s.ApproveSettlement(addr).String(),
	})
}
