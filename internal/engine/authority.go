package engine

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ProgramID anchors launch address derivation. Any fixed 32-byte value
// works for the derived-address scheme; this one is the hash of the
// program's name.
var ProgramID = solana.PublicKey(sha256.Sum256([]byte("launchcurve/bonding-pool/v1")))

var launchSeed = []byte("launch")

// DeriveLaunchAddress maps a mint to its launch account address and bump.
// The launch address doubles as the signing authority for the vault and the
// mint: only the engine can exercise it.
func DeriveLaunchAddress(mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{launchSeed, mint.Bytes()}, ProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("derive launch address: %w", err)
	}
	return addr, bump, nil
}

// DeriveVaultAddress maps a launch and its mint to the vault token account.
func DeriveVaultAddress(launch, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(launch, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive vault address: %w", err)
	}
	return addr, nil
}

// DeriveUserTokenAddress maps a user and a mint to the user's token account.
func DeriveUserTokenAddress(user, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(user, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive user token address: %w", err)
	}
	return addr, nil
}
