package ledger

import "github.com/nomadz/paygate/internal/model"

// DelegationChecker reports whether an account's write control has been
// handed to another authority.
type DelegationChecker interface {
	IsDelegated(acct *Account) bool
}

// OwnerDelegationChecker treats an account as delegated when it is owned by
// the delegation program.
type OwnerDelegationChecker struct {
	DelegationProgram model.Pubkey
}

func NewOwnerDelegationChecker() OwnerDelegationChecker {
	return OwnerDelegationChecker{DelegationProgram: DelegationProgramID}
}

func (c OwnerDelegationChecker) IsDelegated(acct *Account) bool {
	return acct != nil && acct.Owner == c.DelegationProgram
}

// Delegate hands control of the account at addr to the delegation program.
func Delegate(tx Tx, addr model.Pubkey) error {
	acct, err := tx.GetAccount(addr)
	if err != nil {
		return err
	}
	acct.Owner = DelegationProgramID
	return tx.PutAccount(acct)
}

// Undelegate returns control of the account at addr to owner.
func Undelegate(tx Tx, addr, owner model.Pubkey) error {
	acct, err := tx.GetAccount(addr)
	if err != nil {
		return err
	}
	acct.Owner = owner
	return tx.PutAccount(acct)
}
