package engine

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"launchcurve/internal/curve"
	"launchcurve/internal/ledger"
	"launchcurve/internal/model"
)

func key(label string) solana.PublicKey {
	return solana.PublicKey(sha256.Sum256([]byte("engine-test/" + label)))
}

func newTestEngine(t *testing.T) (*Engine, *ledger.Memory) {
	t.Helper()
	mem := ledger.NewMemory()
	return New(mem, nil), mem
}

func createLaunch(t *testing.T, e *Engine, mem *ledger.Memory, mintLabel string, feeBps uint16, initialReserve uint64) model.Launch {
	t.Helper()

	creator := key("creator")
	mem.Credit(creator, 10*ledger.DefaultRentFloor)

	res, err := e.CreateLaunch(CreateLaunchParams{
		Creator:             creator,
		DevWallet:           key("dev"),
		Mint:                key(mintLabel),
		FeeBps:              feeBps,
		InitialTokenReserve: initialReserve,
	})
	if err != nil {
		t.Fatalf("create launch failed: %v", err)
	}
	return res.Launch
}

func tradeReq(launch model.Launch, user solana.PublicKey, amountIn, minOut uint64) TradeRequest {
	return TradeRequest{
		Launch:       launch.Address,
		User:         user,
		Mint:         launch.Mint,
		Vault:        launch.Vault,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
	}
}

func TestCreateLaunchFeeTooHigh(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.CreateLaunch(CreateLaunchParams{FeeBps: MaxFeeBps + 1})
	if !errors.Is(err, ErrFeeTooHigh) {
		t.Fatalf("expected ErrFeeTooHigh, got %v", err)
	}
}

func TestCreateLaunchMintsInitialSupply(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000_000_000_000_000)

	if got, err := mem.TokenBalance(launch.Vault); err != nil || got != 1_000_000_000_000_000 {
		t.Fatalf("vault balance mismatch: %d, %v", got, err)
	}
	if got, err := mem.Balance(launch.Address); err != nil || got != ledger.DefaultRentFloor {
		t.Fatalf("launch account balance mismatch: %d, %v", got, err)
	}
	if launch.SolReserve != 0 || launch.Graduated {
		t.Fatalf("unexpected initial state: %+v", launch)
	}
}

func TestCreateLaunchDuplicate(t *testing.T) {
	e, mem := newTestEngine(t)
	createLaunch(t, e, mem, "mint-a", 100, 1_000)

	creator := key("creator")
	_, err := e.CreateLaunch(CreateLaunchParams{
		Creator:             creator,
		DevWallet:           key("dev"),
		Mint:                key("mint-a"),
		FeeBps:              100,
		InitialTokenReserve: 1_000,
	})
	if !errors.Is(err, ErrLaunchExists) {
		t.Fatalf("expected ErrLaunchExists, got %v", err)
	}
}

func TestBuySettlement(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000_000_000_000_000)

	user := key("user")
	mem.Credit(user, 2_000_000_000)

	res, err := e.Buy(tradeReq(launch, user, 1_000_000_000, 0))
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	// 1% fee on 1 SOL in; the net 0.99 SOL asks the curve for more tokens
	// than the vault holds, so the cap binds and the vault empties.
	if res.Fee != 10_000_000 {
		t.Fatalf("fee mismatch: got %d", res.Fee)
	}
	if res.AmountOut != 1_000_000_000_000_000 {
		t.Fatalf("tokens out mismatch: got %d", res.AmountOut)
	}
	if res.Launch.SolReserve != 990_000_000 {
		t.Fatalf("sol reserve mismatch: got %d", res.Launch.SolReserve)
	}
	if res.Launch.TokenReserve != 0 {
		t.Fatalf("token reserve mismatch: got %d", res.Launch.TokenReserve)
	}
	if res.Launch.Graduated {
		t.Fatalf("unexpected graduation")
	}

	if got, _ := mem.Balance(user); got != 1_000_000_000 {
		t.Fatalf("user balance mismatch: got %d", got)
	}
	if got, _ := mem.Balance(key("dev")); got != 10_000_000 {
		t.Fatalf("dev balance mismatch: got %d", got)
	}
	if got, _ := mem.Balance(launch.Address); got != ledger.DefaultRentFloor+990_000_000 {
		t.Fatalf("pool balance mismatch: got %d", got)
	}

	userToken, err := DeriveUserTokenAddress(user, launch.Mint)
	if err != nil {
		t.Fatalf("derive user token: %v", err)
	}
	if got, _ := mem.TokenBalance(userToken); got != 1_000_000_000_000_000 {
		t.Fatalf("user token balance mismatch: got %d", got)
	}
	if res.Event.EventName != model.EventBought || res.Event.Sequence == 0 {
		t.Fatalf("bad event envelope: %+v", res.Event)
	}
}

func TestBuyValidation(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000_000_000_000_000)
	user := key("user")
	mem.Credit(user, 1_000_000_000)

	if _, err := e.Buy(tradeReq(launch, user, 0, 0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}

	req := tradeReq(launch, user, 1_000, 0)
	req.Mint = key("wrong-mint")
	if _, err := e.Buy(req); !errors.Is(err, ErrBadMint) {
		t.Fatalf("expected ErrBadMint, got %v", err)
	}

	req = tradeReq(launch, user, 1_000, 0)
	req.Vault = key("wrong-vault")
	if _, err := e.Buy(req); !errors.Is(err, ErrBadVault) {
		t.Fatalf("expected ErrBadVault, got %v", err)
	}

	req = tradeReq(launch, user, 1_000, 0)
	req.Launch = key("unknown")
	if _, err := e.Buy(req); !errors.Is(err, ErrLaunchNotFound) {
		t.Fatalf("expected ErrLaunchNotFound, got %v", err)
	}
}

func TestBuySlippageLeavesStateUntouched(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000_000_000_000_000)

	user := key("user")
	mem.Credit(user, 2_000_000_000)
	userBefore, _ := mem.Balance(user)
	devBefore, _ := mem.Balance(key("dev"))

	_, err := e.Buy(tradeReq(launch, user, 1_000_000_000, 1_000_000_000_000_001))
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}

	after, err := e.Launch(launch.Address)
	if err != nil {
		t.Fatalf("launch lookup failed: %v", err)
	}
	if after != launch {
		t.Fatalf("launch state changed: %+v != %+v", after, launch)
	}
	if got, _ := mem.Balance(user); got != userBefore {
		t.Fatalf("user balance changed: %d != %d", got, userBefore)
	}
	if got, _ := mem.Balance(key("dev")); got != devBefore {
		t.Fatalf("dev balance changed: %d != %d", got, devBefore)
	}
}

func TestGraduationBlocksBuysNotSells(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 0, 1_000_000_000_000_000)

	user := key("user")
	mem.Credit(user, 200_000_000_000)

	res, err := e.Buy(tradeReq(launch, user, 100_000_000_000, 0))
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if !res.Launch.Graduated {
		t.Fatalf("expected graduation at threshold, got %+v", res.Launch)
	}

	if _, err := e.Buy(tradeReq(launch, user, 1_000_000_000, 0)); !errors.Is(err, ErrAlreadyGraduated) {
		t.Fatalf("expected ErrAlreadyGraduated, got %v", err)
	}

	sellRes, err := e.Sell(tradeReq(launch, user, 100_000_000_000_000, 0))
	if err != nil {
		t.Fatalf("sell after graduation failed: %v", err)
	}
	if sellRes.AmountOut == 0 {
		t.Fatalf("expected sol out from post-graduation sell")
	}
	if !sellRes.Launch.Graduated {
		t.Fatalf("graduation flag must stay set")
	}
}

func TestSellFeeAndSlippage(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000_000_000_000_000)

	user := key("user")
	mem.Credit(user, 2_000_000_000)
	if _, err := e.Buy(tradeReq(launch, user, 1_000_000_000, 0)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	state, err := e.Launch(launch.Address)
	if err != nil {
		t.Fatalf("launch lookup failed: %v", err)
	}

	tokensIn := uint64(100_000_000_000_000)
	q, err := curve.QuoteSell(state.SolReserve, state.TokenReserve, tokensIn)
	if err != nil {
		t.Fatalf("quote sell failed: %v", err)
	}
	wantFee, err := curve.MulDiv(q.AmountOut, uint64(state.FeeBps), curve.FeeDenominator)
	if err != nil {
		t.Fatalf("fee calc failed: %v", err)
	}
	wantNet := q.AmountOut - wantFee

	if _, err := e.Sell(tradeReq(launch, user, tokensIn, wantNet+1)); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}

	res, err := e.Sell(tradeReq(launch, user, tokensIn, wantNet))
	if err != nil {
		t.Fatalf("sell failed: %v", err)
	}
	if res.Fee != wantFee {
		t.Fatalf("fee mismatch: got %d want %d", res.Fee, wantFee)
	}
	if res.AmountOut != wantNet {
		t.Fatalf("net out mismatch: got %d want %d", res.AmountOut, wantNet)
	}
	if res.Launch.SolReserve != q.NewSolReserve || res.Launch.TokenReserve != q.NewTokenReserve {
		t.Fatalf("reserves mismatch: %+v vs quote %+v", res.Launch, q)
	}
}

func TestSellInsufficientLiquidity(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000_000_000_000_000)

	user := key("user")
	mem.Credit(user, 2_000_000_000)
	if _, err := e.Buy(tradeReq(launch, user, 1_000_000_000, 0)); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	// Force the pool account below what the gross payout needs.
	if err := mem.Debit(launch.Address, 980_000_000); err != nil {
		t.Fatalf("debit failed: %v", err)
	}

	userToken, err := DeriveUserTokenAddress(user, launch.Mint)
	if err != nil {
		t.Fatalf("derive user token: %v", err)
	}
	tokensBefore, _ := mem.TokenBalance(userToken)

	_, err = e.Sell(tradeReq(launch, user, 100_000_000_000_000, 0))
	if !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}

	// The incoming token transfer must have been rolled back.
	if got, _ := mem.TokenBalance(userToken); got != tokensBefore {
		t.Fatalf("token balance changed on failed sell: %d != %d", got, tokensBefore)
	}
}

func TestSellWithoutTokenAccount(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000_000_000_000_000)

	_, err := e.Sell(tradeReq(launch, key("stranger"), 1_000, 0))
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected wrapped ErrAccountNotFound, got %v", err)
	}

	after, err := e.Launch(launch.Address)
	if err != nil {
		t.Fatalf("launch lookup failed: %v", err)
	}
	if after != launch {
		t.Fatalf("launch state changed: %+v != %+v", after, launch)
	}
}

func TestSellZeroAmount(t *testing.T) {
	e, mem := newTestEngine(t)
	launch := createLaunch(t, e, mem, "mint-a", 100, 1_000)

	if _, err := e.Sell(tradeReq(launch, key("user"), 0, 0)); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestBuyQuoteTooSmallRollsBack(t *testing.T) {
	e, mem := newTestEngine(t)
	// An empty vault cannot deliver tokens: the quote rounds to zero output.
	launch := createLaunch(t, e, mem, "mint-a", 0, 0)

	user := key("user")
	mem.Credit(user, 1_000_000_000)
	before, _ := mem.Balance(user)

	_, err := e.Buy(tradeReq(launch, user, 1_000_000, 0))
	if !errors.Is(err, curve.ErrTooSmall) {
		t.Fatalf("expected curve.ErrTooSmall, got %v", err)
	}
	if got, _ := mem.Balance(user); got != before {
		t.Fatalf("user balance changed on failed buy: %d != %d", got, before)
	}
}
