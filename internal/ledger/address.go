package ledger

import (
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nomadz/paygate/internal/model"
)

// CanonicalBump is the derivation tag stored alongside derived records.
const CanonicalBump uint8 = 255

var (
	ProgramID           = programID("paygate")
	TokenProgramID      = programID("paygate-token")
	DelegationProgramID = programID("delegation")
)

func programID(name string) model.Pubkey {
	return model.Pubkey(crypto.Keccak256Hash([]byte("program:" + name)))
}

// DeriveAddress maps (program, seeds) to a deterministic account address.
// The same inputs always produce the same address and tag.
func DeriveAddress(program model.Pubkey, seeds ...[]byte) (model.Pubkey, uint8) {
	parts := make([][]byte, 0, len(seeds)+3)
	parts = append(parts, seeds...)
	parts = append(parts, []byte{CanonicalBump}, program[:], []byte("derived_address"))
	return model.Pubkey(crypto.Keccak256Hash(parts...)), CanonicalBump
}
