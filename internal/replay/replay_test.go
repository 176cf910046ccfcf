package replay

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"launchcurve/internal/engine"
	"launchcurve/internal/ledger"
	"launchcurve/internal/model"
	"launchcurve/internal/storage"
)

const testScript = `{"op":"fund","user":"alice","amount":5000000000}
{"op":"fund","user":"creator","amount":5000000000}
{"op":"create","mint":"pepe","creator":"creator","dev_wallet":"dev","fee_bps":100,"initial_token_reserve":1000000000000000}
{"op":"buy","mint":"pepe","user":"alice","amount_in":1000000000}
{"op":"sell","mint":"pepe","user":"alice","amount_in":100000000000000}
{"op":"buy","mint":"pepe","user":"alice","amount_in":0}
`

func writeScript(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "trades.jsonl")
	if err := os.WriteFile(path, []byte(testScript), 0o644); err != nil {
		t.Fatalf("write script failed: %v", err)
	}
	return path
}

func readEvents(t *testing.T, path string) []model.EventRecord {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open events failed: %v", err)
	}
	defer file.Close()

	var events []model.EventRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.EventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode event failed: %v", err)
		}
		events = append(events, rec)
	}
	return events
}

func TestReplayerRun(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir)
	out := filepath.Join(dir, "events.jsonl")

	mem := ledger.NewMemory()
	eng := engine.New(mem, nil)
	r := NewReplayer(Config{BatchSize: 2}, eng, mem, storage.NewJsonlSink(out), nil, nil)

	if err := r.Run(context.Background(), script); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// create + buy + sell emit; funds and the zero-amount buy do not.
	events := readEvents(t, out)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].EventName != model.EventLaunchCreated ||
		events[1].EventName != model.EventBought ||
		events[2].EventName != model.EventSold {
		t.Fatalf("unexpected event order: %+v", events)
	}

	launches := eng.Launches()
	if len(launches) != 1 {
		t.Fatalf("expected 1 launch, got %d", len(launches))
	}
}

func TestReplayerResumeDoesNotReEmit(t *testing.T) {
	dir := t.TempDir()
	script := writeScript(t, dir)
	out := filepath.Join(dir, "events.jsonl")
	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}

	run := func() {
		mem := ledger.NewMemory()
		eng := engine.New(mem, nil)
		r := NewReplayer(Config{BatchSize: 2, StateStore: state}, eng, mem, storage.NewJsonlSink(out), nil, nil)
		if err := r.Run(context.Background(), script); err != nil {
			t.Fatalf("run failed: %v", err)
		}
	}

	run()
	first := readEvents(t, out)
	run()
	second := readEvents(t, out)

	if len(second) != len(first) {
		t.Fatalf("resume re-emitted events: %d -> %d", len(first), len(second))
	}
}

func TestReplayerFundEach(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.jsonl")
	script := `{"op":"create","mint":"pepe","creator":"creator","dev_wallet":"dev","fee_bps":0,"initial_token_reserve":1000000000000000}
{"op":"buy","mint":"pepe","user":"bob","amount_in":1000000}
`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("write script failed: %v", err)
	}

	mem := ledger.NewMemory()
	eng := engine.New(mem, nil)
	out := filepath.Join(dir, "events.jsonl")
	r := NewReplayer(Config{BatchSize: 10, FundEach: 10_000_000_000}, eng, mem, storage.NewJsonlSink(out), nil, nil)

	if err := r.Run(context.Background(), path); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	events := readEvents(t, out)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}
