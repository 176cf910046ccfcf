package ledger

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// DefaultRentFloor approximates the rent-exempt minimum for a launch-sized
// record, in lamports.
const DefaultRentFloor uint64 = 1_461_600

type account struct {
	lamports uint64
	rent     uint64
}

type mintInfo struct {
	authority solana.PublicKey
	supply    uint64
}

type tokenAccount struct {
	mint    solana.PublicKey
	owner   solana.PublicKey
	balance uint64
}

// Memory is an in-memory ledger for tests and simulation. Transactions are
// snapshot based: Begin copies all balances, Rollback restores the copy.
type Memory struct {
	mu        sync.Mutex
	rentFloor uint64
	accounts  map[solana.PublicKey]*account
	mints     map[solana.PublicKey]*mintInfo
	tokens    map[solana.PublicKey]*tokenAccount
}

func NewMemory() *Memory {
	return &Memory{
		rentFloor: DefaultRentFloor,
		accounts:  make(map[solana.PublicKey]*account),
		mints:     make(map[solana.PublicKey]*mintInfo),
		tokens:    make(map[solana.PublicKey]*tokenAccount),
	}
}

// Credit adds lamports to an account, creating it if needed. Helper for
// tests and simulation setup.
func (m *Memory) Credit(addr solana.PublicKey, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureAccount(addr).lamports += amount
}

// Debit removes lamports from an account unconditionally. Helper for tests
// that need to force an underfunded pool.
func (m *Memory) Debit(addr solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[addr]
	if !ok {
		return fmt.Errorf("debit %s: %w", addr, ErrAccountNotFound)
	}
	if acc.lamports < amount {
		return fmt.Errorf("debit %s: %w", addr, ErrInsufficientFunds)
	}
	acc.lamports -= amount
	return nil
}

func (m *Memory) ensureAccount(addr solana.PublicKey) *account {
	acc, ok := m.accounts[addr]
	if !ok {
		acc = &account{}
		m.accounts[addr] = acc
	}
	return acc
}

func (m *Memory) CreateAccount(payer, addr solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[addr]; ok {
		return fmt.Errorf("account %s: %w", addr, ErrAccountExists)
	}
	from, ok := m.accounts[payer]
	if !ok {
		return fmt.Errorf("payer %s: %w", payer, ErrAccountNotFound)
	}
	if from.lamports < m.rentFloor {
		return fmt.Errorf("payer %s: %w", payer, ErrInsufficientFunds)
	}

	from.lamports -= m.rentFloor
	m.accounts[addr] = &account{lamports: m.rentFloor, rent: m.rentFloor}
	return nil
}

func (m *Memory) CreateMint(mint, authority solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.mints[mint]; ok {
		return fmt.Errorf("mint %s: %w", mint, ErrAccountExists)
	}
	m.mints[mint] = &mintInfo{authority: authority}
	return nil
}

func (m *Memory) CreateTokenAccount(addr, mint, owner solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[addr]; ok {
		return fmt.Errorf("token account %s: %w", addr, ErrAccountExists)
	}
	if _, ok := m.mints[mint]; !ok {
		return fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}
	m.tokens[addr] = &tokenAccount{mint: mint, owner: owner}
	return nil
}

func (m *Memory) MintTo(mint, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, ok := m.mints[mint]
	if !ok {
		return fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}
	if !info.authority.Equals(authority) {
		return fmt.Errorf("mint %s: %w", mint, ErrBadMintAuthority)
	}
	dest, ok := m.tokens[to]
	if !ok {
		return fmt.Errorf("token account %s: %w", to, ErrAccountNotFound)
	}
	if !dest.mint.Equals(mint) {
		return fmt.Errorf("token account %s: %w", to, ErrMintMismatch)
	}
	if info.supply+amount < info.supply {
		return fmt.Errorf("mint %s: supply overflow", mint)
	}

	info.supply += amount
	dest.balance += amount
	return nil
}

func (m *Memory) TransferLamports(from, to solana.PublicKey, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.accounts[from]
	if !ok {
		return fmt.Errorf("account %s: %w", from, ErrAccountNotFound)
	}
	if src.lamports < amount {
		return fmt.Errorf("account %s: %w", from, ErrInsufficientFunds)
	}

	src.lamports -= amount
	m.ensureAccount(to).lamports += amount
	return nil
}

func (m *Memory) TransferTokens(from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.tokens[from]
	if !ok {
		return fmt.Errorf("token account %s: %w", from, ErrAccountNotFound)
	}
	dest, ok := m.tokens[to]
	if !ok {
		return fmt.Errorf("token account %s: %w", to, ErrAccountNotFound)
	}
	if !src.mint.Equals(dest.mint) {
		return fmt.Errorf("token account %s: %w", to, ErrMintMismatch)
	}
	if !src.owner.Equals(authority) {
		return fmt.Errorf("token account %s: %w", from, ErrBadAuthority)
	}
	if src.balance < amount {
		return fmt.Errorf("token account %s: %w", from, ErrInsufficientFunds)
	}

	src.balance -= amount
	dest.balance += amount
	return nil
}

func (m *Memory) Balance(addr solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[addr]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", addr, ErrAccountNotFound)
	}
	return acc.lamports, nil
}

func (m *Memory) TokenBalance(addr solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.tokens[addr]
	if !ok {
		return 0, fmt.Errorf("token account %s: %w", addr, ErrAccountNotFound)
	}
	return acc.balance, nil
}

func (m *Memory) RentFloor(addr solana.PublicKey) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[addr]
	if !ok {
		return 0, fmt.Errorf("account %s: %w", addr, ErrAccountNotFound)
	}
	return acc.rent, nil
}

// Begin snapshots the full ledger state. Calls made through the returned
// transaction mutate the live state; Rollback restores the snapshot.
func (m *Memory) Begin() Tx {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := &snapshot{
		accounts: make(map[solana.PublicKey]account, len(m.accounts)),
		mints:    make(map[solana.PublicKey]mintInfo, len(m.mints)),
		tokens:   make(map[solana.PublicKey]tokenAccount, len(m.tokens)),
	}
	for k, v := range m.accounts {
		snap.accounts[k] = *v
	}
	for k, v := range m.mints {
		snap.mints[k] = *v
	}
	for k, v := range m.tokens {
		snap.tokens[k] = *v
	}

	return &memoryTx{m: m, snap: snap}
}

type snapshot struct {
	accounts map[solana.PublicKey]account
	mints    map[solana.PublicKey]mintInfo
	tokens   map[solana.PublicKey]tokenAccount
}

type memoryTx struct {
	m    *Memory
	snap *snapshot
	done bool
}

func (tx *memoryTx) Commit() {
	tx.done = true
	tx.snap = nil
}

func (tx *memoryTx) Rollback() {
	if tx.done || tx.snap == nil {
		return
	}
	tx.done = true

	tx.m.mu.Lock()
	defer tx.m.mu.Unlock()

	tx.m.accounts = make(map[solana.PublicKey]*account, len(tx.snap.accounts))
	for k, v := range tx.snap.accounts {
		acc := v
		tx.m.accounts[k] = &acc
	}
	tx.m.mints = make(map[solana.PublicKey]*mintInfo, len(tx.snap.mints))
	for k, v := range tx.snap.mints {
		info := v
		tx.m.mints[k] = &info
	}
	tx.m.tokens = make(map[solana.PublicKey]*tokenAccount, len(tx.snap.tokens))
	for k, v := range tx.snap.tokens {
		acc := v
		tx.m.tokens[k] = &acc
	}
	tx.snap = nil
}

func (tx *memoryTx) CreateAccount(payer, addr solana.PublicKey) error {
	return tx.m.CreateAccount(payer, addr)
}

func (tx *memoryTx) CreateMint(mint, authority solana.PublicKey) error {
	return tx.m.CreateMint(mint, authority)
}

func (tx *memoryTx) CreateTokenAccount(addr, mint, owner solana.PublicKey) error {
	return tx.m.CreateTokenAccount(addr, mint, owner)
}

func (tx *memoryTx) MintTo(mint, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	return tx.m.MintTo(mint, to, amount, authority)
}

func (tx *memoryTx) TransferLamports(from, to solana.PublicKey, amount uint64) error {
	return tx.m.TransferLamports(from, to, amount)
}

func (tx *memoryTx) TransferTokens(from, to solana.PublicKey, amount uint64, authority solana.PublicKey) error {
	return tx.m.TransferTokens(from, to, amount, authority)
}

func (tx *memoryTx) Balance(addr solana.PublicKey) (uint64, error) {
	return tx.m.Balance(addr)
}

func (tx *memoryTx) TokenBalance(addr solana.PublicKey) (uint64, error) {
	return tx.m.TokenBalance(addr)
}

func (tx *memoryTx) RentFloor(addr solana.PublicKey) (uint64, error) {
	return tx.m.RentFloor(addr)
}
