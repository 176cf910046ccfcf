package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchcurve/internal/curve"
	"launchcurve/internal/ledger"
	"launchcurve/internal/model"
)

const (
	// MaxFeeBps caps the creator fee at 10%.
	MaxFeeBps uint16 = 1_000

	// GraduationThresholdLamports is the sol reserve (100 SOL) at which a
	// launch leaves its bonding-curve phase. The flag flips once and never
	// clears.
	GraduationThresholdLamports uint64 = 100_000_000_000
)

// Engine owns launch state and settles trades against the bonding curve.
// Operations are serialized by an internal lock; each one runs inside a
// ledger transaction that is rolled back on any failure, so a rejected
// trade leaves neither reserves nor balances changed.
type Engine struct {
	mu       sync.Mutex
	ledger   ledger.Beginner
	logger   *zap.Logger
	launches map[solana.PublicKey]*model.Launch
	sequence uint64
}

func New(l ledger.Beginner, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		ledger:   l,
		logger:   logger,
		launches: make(map[solana.PublicKey]*model.Launch),
	}
}

// CreateLaunchParams are the creation arguments for a new pool.
type CreateLaunchParams struct {
	Creator             solana.PublicKey
	DevWallet           solana.PublicKey
	Mint                solana.PublicKey
	FeeBps              uint16
	InitialTokenReserve uint64
}

// CreateLaunchResult carries the new launch state and its creation event.
type CreateLaunchResult struct {
	Launch model.Launch
	Event  model.EventRecord
}

// TradeRequest identifies the pool and the caller's bounds for one trade.
// AmountIn is lamports for a buy and token base units for a sell.
type TradeRequest struct {
	Launch       solana.PublicKey
	User         solana.PublicKey
	Mint         solana.PublicKey
	Vault        solana.PublicKey
	AmountIn     uint64
	MinAmountOut uint64
}

// TradeResult carries the settled amounts, the post-trade launch state, and
// the emitted event.
type TradeResult struct {
	Launch    model.Launch
	AmountOut uint64
	Fee       uint64
	Event     model.EventRecord
}

// CreateLaunch initializes a pool: derives the launch address and vault from
// the mint, creates the accounts, and mints the initial supply into the
// vault under the launch's own authority. One-shot per mint.
func (e *Engine) CreateLaunch(p CreateLaunchParams) (CreateLaunchResult, error) {
	if p.FeeBps > MaxFeeBps {
		return CreateLaunchResult{}, ErrFeeTooHigh
	}

	addr, bump, err := DeriveLaunchAddress(p.Mint)
	if err != nil {
		return CreateLaunchResult{}, err
	}
	vault, err := DeriveVaultAddress(addr, p.Mint)
	if err != nil {
		return CreateLaunchResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.launches[addr]; ok {
		return CreateLaunchResult{}, ErrLaunchExists
	}

	tx := e.ledger.Begin()
	if err := tx.CreateAccount(p.Creator, addr); err != nil {
		tx.Rollback()
		if errors.Is(err, ledger.ErrAccountExists) {
			return CreateLaunchResult{}, ErrLaunchExists
		}
		return CreateLaunchResult{}, fmt.Errorf("create launch account: %w", err)
	}
	if err := tx.CreateMint(p.Mint, addr); err != nil {
		tx.Rollback()
		return CreateLaunchResult{}, fmt.Errorf("create mint: %w", err)
	}
	if err := tx.CreateTokenAccount(vault, p.Mint, addr); err != nil {
		tx.Rollback()
		return CreateLaunchResult{}, fmt.Errorf("create vault: %w", err)
	}
	if err := tx.MintTo(p.Mint, vault, p.InitialTokenReserve, addr); err != nil {
		tx.Rollback()
		return CreateLaunchResult{}, fmt.Errorf("mint initial supply: %w", err)
	}
	tx.Commit()

	launch := &model.Launch{
		Address:      addr,
		Bump:         bump,
		Mint:         p.Mint,
		Vault:        vault,
		DevWallet:    p.DevWallet,
		Creator:      p.Creator,
		FeeBps:       p.FeeBps,
		SolReserve:   0,
		TokenReserve: p.InitialTokenReserve,
	}
	e.launches[addr] = launch

	ev, err := e.emit(model.EventLaunchCreated, addr, model.LaunchCreatedEvent{
		Launch:       addr,
		Mint:         launch.Mint,
		Vault:        launch.Vault,
		Creator:      launch.Creator,
		DevWallet:    launch.DevWallet,
		FeeBps:       launch.FeeBps,
		TokenReserve: launch.TokenReserve,
		SolReserve:   launch.SolReserve,
	})
	if err != nil {
		return CreateLaunchResult{}, err
	}

	e.logger.Info("launch created",
		zap.Stringer("launch", addr),
		zap.Stringer("mint", p.Mint),
		zap.Uint16("fee_bps", p.FeeBps),
		zap.Uint64("token_reserve", p.InitialTokenReserve),
	)

	return CreateLaunchResult{Launch: *launch, Event: ev}, nil
}

// Buy settles a base-currency-in, tokens-out trade. The incoming lamports
// move first; every later failure rolls the transfer back.
func (e *Engine) Buy(req TradeRequest) (TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	launch, ok := e.launches[req.Launch]
	if !ok {
		return TradeResult{}, ErrLaunchNotFound
	}
	if launch.Graduated {
		return TradeResult{}, ErrAlreadyGraduated
	}
	if req.AmountIn == 0 {
		return TradeResult{}, ErrZeroAmount
	}
	if !launch.Mint.Equals(req.Mint) {
		return TradeResult{}, ErrBadMint
	}
	if !launch.Vault.Equals(req.Vault) {
		return TradeResult{}, ErrBadVault
	}

	userToken, err := DeriveUserTokenAddress(req.User, launch.Mint)
	if err != nil {
		return TradeResult{}, err
	}

	tx := e.ledger.Begin()

	if err := tx.TransferLamports(req.User, launch.Address, req.AmountIn); err != nil {
		tx.Rollback()
		return TradeResult{}, fmt.Errorf("transfer sol in: %w", err)
	}

	fee, err := curve.MulDiv(req.AmountIn, uint64(launch.FeeBps), curve.FeeDenominator)
	if err != nil {
		tx.Rollback()
		return TradeResult{}, err
	}
	if fee > 0 {
		if err := tx.TransferLamports(launch.Address, launch.DevWallet, fee); err != nil {
			tx.Rollback()
			return TradeResult{}, fmt.Errorf("transfer fee: %w", err)
		}
	}

	q, err := curve.QuoteBuy(launch.SolReserve, launch.TokenReserve, req.AmountIn-fee)
	if err != nil {
		tx.Rollback()
		return TradeResult{}, err
	}
	if q.AmountOut < req.MinAmountOut {
		tx.Rollback()
		return TradeResult{}, ErrSlippageExceeded
	}

	if _, err := tx.TokenBalance(userToken); err != nil {
		if !errors.Is(err, ledger.ErrAccountNotFound) {
			tx.Rollback()
			return TradeResult{}, fmt.Errorf("user token account: %w", err)
		}
		if err := tx.CreateTokenAccount(userToken, launch.Mint, req.User); err != nil {
			tx.Rollback()
			return TradeResult{}, fmt.Errorf("create user token account: %w", err)
		}
	}
	if err := tx.TransferTokens(launch.Vault, userToken, q.AmountOut, launch.Address); err != nil {
		tx.Rollback()
		return TradeResult{}, fmt.Errorf("transfer tokens out: %w", err)
	}

	tx.Commit()

	launch.SolReserve = q.NewSolReserve
	launch.TokenReserve = q.NewTokenReserve
	if launch.SolReserve >= GraduationThresholdLamports {
		launch.Graduated = true
	}

	ev, err := e.emit(model.EventBought, launch.Address, model.BoughtEvent{
		Launch:       launch.Address,
		User:         req.User,
		SolIn:        req.AmountIn,
		FeeLamports:  fee,
		TokensOut:    q.AmountOut,
		SolReserve:   launch.SolReserve,
		TokenReserve: launch.TokenReserve,
		Graduated:    launch.Graduated,
	})
	if err != nil {
		return TradeResult{}, err
	}

	e.logger.Info("buy settled",
		zap.Stringer("launch", launch.Address),
		zap.Stringer("user", req.User),
		zap.Uint64("sol_in", req.AmountIn),
		zap.Uint64("fee_lamports", fee),
		zap.Uint64("tokens_out", q.AmountOut),
		zap.Bool("graduated", launch.Graduated),
	)

	return TradeResult{Launch: *launch, AmountOut: q.AmountOut, Fee: fee, Event: ev}, nil
}

// Sell settles a tokens-in, base-currency-out trade. The fee comes out of
// the gross lamport output, and the pool must stay above its rent floor
// after paying. Sells stay open after graduation.
func (e *Engine) Sell(req TradeRequest) (TradeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	launch, ok := e.launches[req.Launch]
	if !ok {
		return TradeResult{}, ErrLaunchNotFound
	}
	if req.AmountIn == 0 {
		return TradeResult{}, ErrZeroAmount
	}
	if !launch.Mint.Equals(req.Mint) {
		return TradeResult{}, ErrBadMint
	}
	if !launch.Vault.Equals(req.Vault) {
		return TradeResult{}, ErrBadVault
	}

	userToken, err := DeriveUserTokenAddress(req.User, launch.Mint)
	if err != nil {
		return TradeResult{}, err
	}

	tx := e.ledger.Begin()

	if err := tx.TransferTokens(userToken, launch.Vault, req.AmountIn, req.User); err != nil {
		tx.Rollback()
		return TradeResult{}, fmt.Errorf("transfer tokens in: %w", err)
	}

	q, err := curve.QuoteSell(launch.SolReserve, launch.TokenReserve, req.AmountIn)
	if err != nil {
		tx.Rollback()
		return TradeResult{}, err
	}

	fee, err := curve.MulDiv(q.AmountOut, uint64(launch.FeeBps), curve.FeeDenominator)
	if err != nil {
		tx.Rollback()
		return TradeResult{}, err
	}
	solOutNet := q.AmountOut - fee

	if solOutNet < req.MinAmountOut {
		tx.Rollback()
		return TradeResult{}, ErrSlippageExceeded
	}

	balance, err := tx.Balance(launch.Address)
	if err != nil {
		tx.Rollback()
		return TradeResult{}, fmt.Errorf("pool balance: %w", err)
	}
	rentMin, err := tx.RentFloor(launch.Address)
	if err != nil {
		tx.Rollback()
		return TradeResult{}, fmt.Errorf("rent floor: %w", err)
	}
	if balance < rentMin || balance-rentMin < q.AmountOut {
		tx.Rollback()
		return TradeResult{}, ErrInsufficientLiquidity
	}

	if err := tx.TransferLamports(launch.Address, req.User, solOutNet); err != nil {
		tx.Rollback()
		return TradeResult{}, fmt.Errorf("transfer sol out: %w", err)
	}
	if fee > 0 {
		if err := tx.TransferLamports(launch.Address, launch.DevWallet, fee); err != nil {
			tx.Rollback()
			return TradeResult{}, fmt.Errorf("transfer fee: %w", err)
		}
	}

	tx.Commit()

	launch.SolReserve = q.NewSolReserve
	launch.TokenReserve = q.NewTokenReserve
	if launch.SolReserve >= GraduationThresholdLamports {
		launch.Graduated = true
	}

	ev, err := e.emit(model.EventSold, launch.Address, model.SoldEvent{
		Launch:       launch.Address,
		User:         req.User,
		TokensIn:     req.AmountIn,
		SolOutGross:  q.AmountOut,
		FeeLamports:  fee,
		SolOutNet:    solOutNet,
		SolReserve:   launch.SolReserve,
		TokenReserve: launch.TokenReserve,
		Graduated:    launch.Graduated,
	})
	if err != nil {
		return TradeResult{}, err
	}

	e.logger.Info("sell settled",
		zap.Stringer("launch", launch.Address),
		zap.Stringer("user", req.User),
		zap.Uint64("tokens_in", req.AmountIn),
		zap.Uint64("sol_out_gross", q.AmountOut),
		zap.Uint64("fee_lamports", fee),
		zap.Uint64("sol_out_net", solOutNet),
	)

	return TradeResult{Launch: *launch, AmountOut: solOutNet, Fee: fee, Event: ev}, nil
}

// Launch returns a copy of one launch's state.
func (e *Engine) Launch(addr solana.PublicKey) (model.Launch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	launch, ok := e.launches[addr]
	if !ok {
		return model.Launch{}, ErrLaunchNotFound
	}
	return *launch, nil
}

// Launches returns copies of all launch states.
func (e *Engine) Launches() []model.Launch {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]model.Launch, 0, len(e.launches))
	for _, launch := range e.launches {
		out = append(out, *launch)
	}
	return out
}

func (e *Engine) emit(name string, launch solana.PublicKey, payload any) (model.EventRecord, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return model.EventRecord{}, fmt.Errorf("marshal %s event: %w", name, err)
	}

	e.sequence++
	return model.EventRecord{
		ID:        uuid.NewString(),
		Sequence:  e.sequence,
		EventName: name,
		Launch:    launch.String(),
		EmittedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:   data,
	}, nil
}
