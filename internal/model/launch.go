package model

import "github.com/gagliardetto/solana-go"

// Launch is the authoritative state of one bonding-curve pool. Identity
// fields are fixed at creation; only the reserves and the graduation flag
// change afterwards.
type Launch struct {
	Address      solana.PublicKey `json:"address"`
	Bump         uint8            `json:"bump"`
	Mint         solana.PublicKey `json:"mint"`
	Vault        solana.PublicKey `json:"vault"`
	DevWallet    solana.PublicKey `json:"dev_wallet"`
	Creator      solana.PublicKey `json:"creator"`
	FeeBps       uint16           `json:"fee_bps"`
	Graduated    bool             `json:"graduated"`
	SolReserve   uint64           `json:"sol_reserve"`
	TokenReserve uint64           `json:"token_reserve"`
}
