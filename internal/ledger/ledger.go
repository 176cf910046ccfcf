package ledger

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountExists     = errors.New("account exists")
	ErrAccountNotFound   = errors.New("account not found")
	ErrBadAuthority      = errors.New("bad authority")
	ErrBadMintAuthority  = errors.New("bad mint authority")
	ErrMintMismatch      = errors.New("mint mismatch")
)

// Ledger is the custody contract the engine delegates asset movement to.
// Implementations hold all lamport and token balances; the engine never
// mutates balances directly.
type Ledger interface {
	// CreateAccount creates a rent-funded lamport account, debiting the
	// payer by the account's rent-exempt minimum. Fails if addr exists.
	CreateAccount(payer, addr solana.PublicKey) error

	// CreateMint registers a token mint controlled by authority.
	CreateMint(mint, authority solana.PublicKey) error

	// CreateTokenAccount creates an empty token account for mint owned by owner.
	CreateTokenAccount(addr, mint, owner solana.PublicKey) error

	// MintTo issues new supply into a token account; authority must be the
	// mint authority.
	MintTo(mint, to solana.PublicKey, amount uint64, authority solana.PublicKey) error

	// TransferLamports moves base currency. The destination is created
	// lazily; the source must exist and hold at least amount.
	TransferLamports(from, to solana.PublicKey, amount uint64) error

	// TransferTokens moves tokens between accounts of the same mint;
	// authority must be the owner of the source account.
	TransferTokens(from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error

	Balance(addr solana.PublicKey) (uint64, error)
	TokenBalance(addr solana.PublicKey) (uint64, error)

	// RentFloor is the minimum lamport balance addr must retain to stay a
	// valid persistent record.
	RentFloor(addr solana.PublicKey) (uint64, error)
}

// Beginner opens an all-or-nothing boundary around a group of ledger calls,
// standing in for the hosting runtime's transaction.
type Beginner interface {
	Begin() Tx
}

// Tx is a transactional ledger view. Rollback undoes every call made through
// the transaction; Commit makes them permanent.
type Tx interface {
	Ledger
	Commit()
	Rollback()
}
