package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"launchcurve/internal/curve"
)

type quoteOutput struct {
	Side            string `json:"side"`
	AmountIn        uint64 `json:"amount_in"`
	FeeLamports     uint64 `json:"fee_lamports"`
	AmountOut       uint64 `json:"amount_out"`
	NewSolReserve   uint64 `json:"new_sol_reserve"`
	NewTokenReserve uint64 `json:"new_token_reserve"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	side, _ := cmd.Flags().GetString("side")
	solReserve, _ := cmd.Flags().GetUint64("sol-reserve")
	tokenReserve, _ := cmd.Flags().GetUint64("token-reserve")
	amount, _ := cmd.Flags().GetUint64("amount")
	feeBps, _ := cmd.Flags().GetUint16("fee-bps")

	if amount == 0 {
		return fmt.Errorf("amount must be positive")
	}

	out := quoteOutput{Side: side, AmountIn: amount}

	switch side {
	case "buy":
		// Fee comes off the input, as the buy leg charges it.
		fee, err := curve.MulDiv(amount, uint64(feeBps), curve.FeeDenominator)
		if err != nil {
			return err
		}
		q, err := curve.QuoteBuy(solReserve, tokenReserve, amount-fee)
		if err != nil {
			return err
		}
		out.FeeLamports = fee
		out.AmountOut = q.AmountOut
		out.NewSolReserve = q.NewSolReserve
		out.NewTokenReserve = q.NewTokenReserve

	case "sell":
		// Fee comes off the gross lamport output, as the sell leg charges it.
		q, err := curve.QuoteSell(solReserve, tokenReserve, amount)
		if err != nil {
			return err
		}
		fee, err := curve.MulDiv(q.AmountOut, uint64(feeBps), curve.FeeDenominator)
		if err != nil {
			return err
		}
		out.FeeLamports = fee
		out.AmountOut = q.AmountOut - fee
		out.NewSolReserve = q.NewSolReserve
		out.NewTokenReserve = q.NewTokenReserve

	default:
		return fmt.Errorf("side must be buy or sell")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
