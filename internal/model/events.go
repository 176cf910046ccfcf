package model

import "github.com/gagliardetto/solana-go"

// LaunchCreatedEvent is the payload emitted when a pool is initialized.
type LaunchCreatedEvent struct {
	Launch       solana.PublicKey `json:"launch"`
	Mint         solana.PublicKey `json:"mint"`
	Vault        solana.PublicKey `json:"vault"`
	Creator      solana.PublicKey `json:"creator"`
	DevWallet    solana.PublicKey `json:"dev_wallet"`
	FeeBps       uint16           `json:"fee_bps"`
	TokenReserve uint64           `json:"token_reserve"`
	SolReserve   uint64           `json:"sol_reserve"`
}

// BoughtEvent is the payload emitted after a settled buy.
type BoughtEvent struct {
	Launch       solana.PublicKey `json:"launch"`
	User         solana.PublicKey `json:"user"`
	SolIn        uint64           `json:"sol_in"`
	FeeLamports  uint64           `json:"fee_lamports"`
	TokensOut    uint64           `json:"tokens_out"`
	SolReserve   uint64           `json:"sol_reserve"`
	TokenReserve uint64           `json:"token_reserve"`
	Graduated    bool             `json:"graduated"`
}

// SoldEvent is the payload emitted after a settled sell.
type SoldEvent struct {
	Launch       solana.PublicKey `json:"launch"`
	User         solana.PublicKey `json:"user"`
	TokensIn     uint64           `json:"tokens_in"`
	SolOutGross  uint64           `json:"sol_out_gross"`
	FeeLamports  uint64           `json:"fee_lamports"`
	SolOutNet    uint64           `json:"sol_out_net"`
	SolReserve   uint64           `json:"sol_reserve"`
	TokenReserve uint64           `json:"token_reserve"`
	Graduated    bool             `json:"graduated"`
}
