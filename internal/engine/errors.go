package engine

import "errors"

// Typed failures surfaced by launch and trade operations. Math failures
// (curve.ErrMathOverflow, curve.ErrTooSmall) pass through unwrapped.
var (
	ErrFeeTooHigh            = errors.New("fee bps too high")
	ErrZeroAmount            = errors.New("zero amount")
	ErrSlippageExceeded      = errors.New("slippage exceeded")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrBadMint               = errors.New("bad mint")
	ErrBadVault              = errors.New("bad vault")
	ErrAlreadyGraduated      = errors.New("launch already graduated")
	ErrLaunchExists          = errors.New("launch already exists")
	ErrLaunchNotFound        = errors.New("launch not found")
)
