package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Micheal-18/tick.backend/models"
)

var _ Store = (*Memory)(nil)

// Memory is the in-memory Store used by tests. Transactions snapshot all
// state up front and restore it when fn fails, which makes partial-update
// bugs observable. Fail, when set, injects an error into the named
// mutation to exercise abort paths.
type Memory struct {
	txMu sync.Mutex // serializes transactions
	mu   sync.Mutex // guards the maps

	seq         int
	wallets     map[string]models.Wallet
	events      map[string]models.Event
	tickets     map[string]models.Ticket
	entries     []models.WalletTransaction
	withdrawals map[string]models.WithdrawalRequest

	// Fail injects an error into the named operation ("SaveWallet",
	// "SaveTicket", ...). Nil means no injection.
	Fail func(op string) error
}

func NewMemory() *Memory {
	return &Memory{
		wallets:     map[string]models.Wallet{},
		events:      map[string]models.Event{},
		tickets:     map[string]models.Ticket{},
		withdrawals: map[string]models.WithdrawalRequest{},
	}
}

func (m *Memory) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%04d", prefix, m.seq)
}

func (m *Memory) failOn(op string) error {
	if m.Fail != nil {
		return m.Fail(op)
	}
	return nil
}

type memorySnapshot struct {
	seq         int
	wallets     map[string]models.Wallet
	events      map[string]models.Event
	tickets     map[string]models.Ticket
	entries     []models.WalletTransaction
	withdrawals map[string]models.WithdrawalRequest
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		seq:         m.seq,
		wallets:     make(map[string]models.Wallet, len(m.wallets)),
		events:      make(map[string]models.Event, len(m.events)),
		tickets:     make(map[string]models.Ticket, len(m.tickets)),
		entries:     append([]models.WalletTransaction(nil), m.entries...),
		withdrawals: make(map[string]models.WithdrawalRequest, len(m.withdrawals)),
	}
	for k, v := range m.wallets {
		s.wallets[k] = v
	}
	for k, v := range m.events {
		s.events[k] = v
	}
	for k, v := range m.tickets {
		s.tickets[k] = v
	}
	for k, v := range m.withdrawals {
		s.withdrawals[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.seq = s.seq
	m.wallets = s.wallets
	m.events = s.events
	m.tickets = s.tickets
	m.entries = s.entries
	m.withdrawals = s.withdrawals
}

func (m *Memory) RunInTransaction(ctx context.Context, fn func(tx Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	snap := m.snapshot()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) SumEntries(walletID string, typ models.TransactionType, field string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, e := range m.entries {
		if e.Type != typ {
			continue
		}
		if walletID != "" && e.WalletID != walletID {
			continue
		}
		switch field {
		case "net_amount":
			total += e.NetAmount
		case "fee":
			total += e.Fee
		case "gross_amount":
			total += e.GrossAmount
		default:
			return 0, fmt.Errorf("memory: unsupported sum field %q", field)
		}
	}
	return total, nil
}

// --- wallets ---

func (m *Memory) WalletByOwner(ownerID string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.OwnerID == ownerID {
			cp := w
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) WalletByPayoutAccount(account string) (*models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.wallets {
		if w.PayoutAccount != "" && w.PayoutAccount == account {
			cp := w
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveWallet(w *models.Wallet) error {
	if err := m.failOn("SaveWallet"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w.ID == "" {
		w.ID = m.nextID("wal")
	}
	w.UpdatedAt = time.Now()
	m.wallets[w.ID] = *w
	return nil
}

// --- events ---

func (m *Memory) EventByID(id string) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := ev
	return &cp, nil
}

func (m *Memory) SaveEvent(ev *models.Event) error {
	if err := m.failOn("SaveEvent"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.ID == "" {
		ev.ID = m.nextID("evt")
	}
	m.events[ev.ID] = *ev
	return nil
}

// --- tickets ---

func (m *Memory) TicketByReference(reference string) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tickets {
		if t.Reference == reference {
			cp := t
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveTicket(t *models.Ticket) error {
	if err := m.failOn("SaveTicket"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == "" {
		t.ID = m.nextID("tkt")
		t.CreatedAt = time.Now()
	}
	m.tickets[t.ID] = *t
	return nil
}

// Tickets returns every stored ticket, for test assertions.
func (m *Memory) Tickets() []models.Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		out = append(out, t)
	}
	return out
}

// --- ledger entries ---

func (m *Memory) TransactionByReference(reference string, typ models.TransactionType) (*models.WalletTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Reference == reference && e.Type == typ {
			cp := e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) AppendTransaction(entry *models.WalletTransaction) error {
	if err := m.failOn("AppendTransaction"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.nextID("txn")
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

// Entries returns every ledger entry, for test assertions.
func (m *Memory) Entries() []models.WalletTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.WalletTransaction(nil), m.entries...)
}

// --- withdrawals ---

func (m *Memory) WithdrawalByReference(reference string) (*models.WithdrawalRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, wr := range m.withdrawals {
		if wr.Reference == reference {
			cp := wr
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) SaveWithdrawal(wr *models.WithdrawalRequest) error {
	if err := m.failOn("SaveWithdrawal"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if wr.ID == "" {
		wr.ID = m.nextID("wdr")
		wr.CreatedAt = time.Now()
	}
	wr.UpdatedAt = time.Now()
	m.withdrawals[wr.ID] = *wr
	return nil
}
