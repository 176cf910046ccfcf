package replay

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"launchcurve/internal/engine"
	"launchcurve/internal/ledger"
	"launchcurve/internal/model"
	"launchcurve/internal/storage"
	"launchcurve/internal/storage/postgres"
)

// Instruction is one line of a trade script. Identities are labels, mapped
// to deterministic keys, so scripts replay to identical state every run.
type Instruction struct {
	Op                  string `json:"op"` // fund, create, buy, sell
	User                string `json:"user,omitempty"`
	Mint                string `json:"mint,omitempty"`
	Creator             string `json:"creator,omitempty"`
	DevWallet           string `json:"dev_wallet,omitempty"`
	FeeBps              uint16 `json:"fee_bps,omitempty"`
	InitialTokenReserve uint64 `json:"initial_token_reserve,omitempty"`
	Amount              uint64 `json:"amount,omitempty"`
	AmountIn            uint64 `json:"amount_in,omitempty"`
	MinAmountOut        uint64 `json:"min_amount_out,omitempty"`
}

// Config controls replay behavior.
type Config struct {
	BatchSize  int
	StateStore StateStore
	// FundEach credits every user label this many lamports on first sight.
	FundEach uint64
}

// Replayer drives a trade script through the engine and persists the
// emitted events. Engine state is rebuilt deterministically from the start
// of the script; lines at or below the stored position are re-applied but
// their events are not re-emitted.
type Replayer struct {
	cfg    Config
	eng    *engine.Engine
	mem    *ledger.Memory
	sink   storage.EventSink
	store  *postgres.Store
	logger *zap.Logger
	seen   map[string]bool
}

func NewReplayer(cfg Config, eng *engine.Engine, mem *ledger.Memory, sink storage.EventSink, store *postgres.Store, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		cfg:    cfg,
		eng:    eng,
		mem:    mem,
		sink:   sink,
		store:  store,
		logger: logger,
		seen:   make(map[string]bool),
	}
}

// AccountKey maps a script label to a deterministic identity.
func AccountKey(label string) solana.PublicKey {
	return solana.PublicKey(sha256.Sum256([]byte("launchpool/sim/" + label)))
}

// Run executes the trade script at inputPath.
func (r *Replayer) Run(ctx context.Context, inputPath string) error {
	if r.eng == nil || r.mem == nil {
		return fmt.Errorf("engine and ledger are required")
	}
	if r.sink == nil {
		return fmt.Errorf("event sink is required")
	}
	if r.cfg.BatchSize <= 0 {
		r.cfg.BatchSize = 100
	}

	var startLine uint64
	if r.cfg.StateStore != nil {
		line, ok, err := r.cfg.StateStore.Load(ctx)
		if err != nil {
			return err
		}
		if ok {
			startLine = line
		}
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	batch := make([]model.EventRecord, 0, r.cfg.BatchSize)
	var lineNo uint64
	var total, applied, failed, replayed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lineNo++
		total++

		var inst Instruction
		if err := json.Unmarshal(line, &inst); err != nil {
			failed++
			r.logger.Warn("decode instruction", zap.Uint64("line", lineNo), zap.Error(err))
			continue
		}

		ev, ok, err := r.apply(inst)
		if err != nil {
			failed++
			r.logger.Warn("apply instruction",
				zap.Uint64("line", lineNo),
				zap.String("op", inst.Op),
				zap.Error(err),
			)
			continue
		}
		applied++

		if lineNo <= startLine {
			replayed++
			continue
		}
		if ok {
			batch = append(batch, ev)
		}

		if len(batch) >= r.cfg.BatchSize {
			if err := r.flush(ctx, batch, lineNo); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := r.flush(ctx, batch, lineNo); err != nil {
		return err
	}

	r.logger.Info("replay done",
		zap.Int("total", total),
		zap.Int("applied", applied),
		zap.Int("failed", failed),
		zap.Int("replayed", replayed),
		zap.Int("launches", len(r.eng.Launches())),
	)

	return nil
}

func (r *Replayer) apply(inst Instruction) (model.EventRecord, bool, error) {
	switch inst.Op {
	case "fund":
		if inst.User == "" {
			return model.EventRecord{}, false, fmt.Errorf("fund requires user")
		}
		r.mem.Credit(AccountKey(inst.User), inst.Amount)
		return model.EventRecord{}, false, nil

	case "create":
		if inst.Mint == "" || inst.Creator == "" {
			return model.EventRecord{}, false, fmt.Errorf("create requires mint and creator")
		}
		r.fund(inst.Creator)
		res, err := r.eng.CreateLaunch(engine.CreateLaunchParams{
			Creator:             AccountKey(inst.Creator),
			DevWallet:           AccountKey(inst.DevWallet),
			Mint:                AccountKey(inst.Mint),
			FeeBps:              inst.FeeBps,
			InitialTokenReserve: inst.InitialTokenReserve,
		})
		if err != nil {
			return model.EventRecord{}, false, err
		}
		return res.Event, true, nil

	case "buy", "sell":
		if inst.Mint == "" || inst.User == "" {
			return model.EventRecord{}, false, fmt.Errorf("%s requires mint and user", inst.Op)
		}
		r.fund(inst.User)
		req, err := r.tradeRequest(inst)
		if err != nil {
			return model.EventRecord{}, false, err
		}

		var res engine.TradeResult
		if inst.Op == "buy" {
			res, err = r.eng.Buy(req)
		} else {
			res, err = r.eng.Sell(req)
		}
		if err != nil {
			return model.EventRecord{}, false, err
		}
		return res.Event, true, nil

	default:
		return model.EventRecord{}, false, fmt.Errorf("unknown op %q", inst.Op)
	}
}

func (r *Replayer) tradeRequest(inst Instruction) (engine.TradeRequest, error) {
	mint := AccountKey(inst.Mint)
	addr, _, err := engine.DeriveLaunchAddress(mint)
	if err != nil {
		return engine.TradeRequest{}, err
	}
	launch, err := r.eng.Launch(addr)
	if err != nil {
		return engine.TradeRequest{}, err
	}

	return engine.TradeRequest{
		Launch:       launch.Address,
		User:         AccountKey(inst.User),
		Mint:         launch.Mint,
		Vault:        launch.Vault,
		AmountIn:     inst.AmountIn,
		MinAmountOut: inst.MinAmountOut,
	}, nil
}

func (r *Replayer) fund(label string) {
	if r.cfg.FundEach == 0 || label == "" || r.seen[label] {
		return
	}
	r.seen[label] = true
	r.mem.Credit(AccountKey(label), r.cfg.FundEach)
}

func (r *Replayer) flush(ctx context.Context, batch []model.EventRecord, lineNo uint64) error {
	if len(batch) > 0 {
		if err := r.sink.PutEventBatch(batch); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
		if r.store != nil {
			if err := r.store.InsertEvents(ctx, batch); err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
			if err := r.store.UpsertLaunches(ctx, r.eng.Launches()); err != nil {
				return fmt.Errorf("upsert launches: %w", err)
			}
		}
	}

	if r.cfg.StateStore != nil && lineNo > 0 {
		if err := r.cfg.StateStore.Save(ctx, lineNo); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	return nil
}
