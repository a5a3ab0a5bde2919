package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"

	"github.com/Micheal-18/tick.backend/models"
)

// Collection names backing the ledger.
const (
	collWallets      = "wallets"
	collEvents       = "events"
	collTickets      = "tickets"
	collTransactions = "wallet_transactions"
	collWithdrawals  = "withdrawal_requests"
)

var _ Store = (*PBStore)(nil)

// PBStore implements Store on top of a PocketBase app. Atomicity comes
// from the app's RunInTransaction; the unique indexes created by the
// migrations are the uniqueness backstop for external references.
type PBStore struct {
	pbTx
}

// NewPBStore wraps a PocketBase app (or a transactional txApp).
func NewPBStore(app core.App) *PBStore {
	return &PBStore{pbTx{app: app}}
}

func (s *PBStore) RunInTransaction(ctx context.Context, fn func(tx Tx) error) error {
	err := s.app.RunInTransaction(func(txApp core.App) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(&pbTx{app: txApp})
	})
	if err != nil && isBusy(err) {
		return fmt.Errorf("pbstore: %w", ErrConflict)
	}
	return err
}

func (s *PBStore) SumEntries(walletID string, typ models.TransactionType, field string) (int64, error) {
	switch field {
	case "net_amount", "fee", "gross_amount":
	default:
		return 0, fmt.Errorf("pbstore: unsupported sum field %q", field)
	}

	q := s.app.DB().
		Select(fmt.Sprintf("COALESCE(SUM(%s), 0)", field)).
		From(collTransactions).
		Where(dbx.HashExp{"type": string(typ)})
	if walletID != "" {
		q.AndWhere(dbx.HashExp{"wallet_id": walletID})
	}

	var total int64
	if err := q.Row(&total); err != nil {
		return 0, fmt.Errorf("pbstore: sum %s/%s: %w", typ, field, err)
	}
	return total, nil
}

// isBusy reports a sqlite write contention error that warrants a retry.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// pbTx carries the record API; inside RunInTransaction it is bound to the
// transactional app instance.
type pbTx struct {
	app core.App
}

func (t *pbTx) findFirst(collection, filter string, params dbx.Params) (*core.Record, error) {
	rec, err := t.app.FindFirstRecordByFilter(collection, filter, params)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pbstore: find %s: %w", collection, err)
	}
	return rec, nil
}

func (t *pbTx) newRecord(collection string) (*core.Record, error) {
	col, err := t.app.FindCollectionByNameOrId(collection)
	if err != nil {
		return nil, fmt.Errorf("pbstore: collection %s: %w", collection, err)
	}
	return core.NewRecord(col), nil
}

// --- wallets ---

func (t *pbTx) WalletByOwner(ownerID string) (*models.Wallet, error) {
	rec, err := t.findFirst(collWallets, "owner_id = {:owner}", dbx.Params{"owner": ownerID})
	if err != nil {
		return nil, err
	}
	return walletFromRecord(rec), nil
}

func (t *pbTx) WalletByPayoutAccount(account string) (*models.Wallet, error) {
	rec, err := t.findFirst(collWallets, "payout_account = {:acc}", dbx.Params{"acc": account})
	if err != nil {
		return nil, err
	}
	return walletFromRecord(rec), nil
}

func (t *pbTx) SaveWallet(w *models.Wallet) error {
	rec, err := t.recordFor(collWallets, w.ID)
	if err != nil {
		return err
	}
	rec.Set("owner_id", w.OwnerID)
	rec.Set("payout_account", w.PayoutAccount)
	rec.Set("balance", w.Balance)
	rec.Set("pending_balance", w.PendingBalance)
	rec.Set("settled_balance", w.SettledBalance)
	rec.Set("total_earned", w.TotalEarned)
	if err := t.app.Save(rec); err != nil {
		return fmt.Errorf("pbstore: save wallet: %w", err)
	}
	w.ID = rec.Id
	w.UpdatedAt = rec.GetDateTime("updated").Time()
	return nil
}

func walletFromRecord(rec *core.Record) *models.Wallet {
	return &models.Wallet{
		ID:             rec.Id,
		OwnerID:        rec.GetString("owner_id"),
		PayoutAccount:  rec.GetString("payout_account"),
		Balance:        int64(rec.GetInt("balance")),
		PendingBalance: int64(rec.GetInt("pending_balance")),
		SettledBalance: int64(rec.GetInt("settled_balance")),
		TotalEarned:    int64(rec.GetInt("total_earned")),
		UpdatedAt:      rec.GetDateTime("updated").Time(),
	}
}

// --- events ---

func (t *pbTx) EventByID(id string) (*models.Event, error) {
	rec, err := t.app.FindRecordById(collEvents, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pbstore: find event: %w", err)
	}
	return eventFromRecord(rec), nil
}

func (t *pbTx) SaveEvent(ev *models.Event) error {
	rec, err := t.recordFor(collEvents, ev.ID)
	if err != nil {
		return err
	}
	rec.Set("owner_id", ev.OwnerID)
	rec.Set("name", ev.Name)
	rec.Set("venue", ev.Venue)
	rec.Set("start_time", ev.StartTime)
	rec.Set("ticket_label", ev.TicketLabel)
	rec.Set("ticket_price", ev.TicketPrice)
	rec.Set("ticket_sold", ev.TicketSold)
	rec.Set("gross_revenue", ev.GrossRevenue)
	rec.Set("organizer_revenue", ev.OrganizerRevenue)
	rec.Set("platform_revenue", ev.PlatformRevenue)
	rec.Set("payout_account", ev.PayoutAccount)
	rec.Set("status", ev.Status)
	if err := t.app.Save(rec); err != nil {
		return fmt.Errorf("pbstore: save event: %w", err)
	}
	ev.ID = rec.Id
	return nil
}

func eventFromRecord(rec *core.Record) *models.Event {
	return &models.Event{
		ID:               rec.Id,
		OwnerID:          rec.GetString("owner_id"),
		Name:             rec.GetString("name"),
		Venue:            rec.GetString("venue"),
		StartTime:        rec.GetDateTime("start_time").Time(),
		TicketLabel:      rec.GetString("ticket_label"),
		TicketPrice:      int64(rec.GetInt("ticket_price")),
		TicketSold:       rec.GetInt("ticket_sold"),
		GrossRevenue:     int64(rec.GetInt("gross_revenue")),
		OrganizerRevenue: int64(rec.GetInt("organizer_revenue")),
		PlatformRevenue:  int64(rec.GetInt("platform_revenue")),
		PayoutAccount:    rec.GetString("payout_account"),
		Status:           rec.GetString("status"),
	}
}

// --- tickets ---

func (t *pbTx) TicketByReference(reference string) (*models.Ticket, error) {
	rec, err := t.findFirst(collTickets, "reference = {:ref}", dbx.Params{"ref": reference})
	if err != nil {
		return nil, err
	}
	return ticketFromRecord(rec), nil
}

func (t *pbTx) SaveTicket(tk *models.Ticket) error {
	rec, err := t.recordFor(collTickets, tk.ID)
	if err != nil {
		return err
	}
	rec.Set("reference", tk.Reference)
	rec.Set("event_id", tk.EventID)
	rec.Set("buyer_name", tk.BuyerName)
	rec.Set("buyer_email", tk.BuyerEmail)
	rec.Set("label", tk.Label)
	rec.Set("quantity", tk.Quantity)
	rec.Set("amount", tk.Amount)
	rec.Set("status", tk.Status)
	rec.Set("used", tk.Used)
	rec.Set("qr_payload", tk.QRPayload)
	if err := t.app.Save(rec); err != nil {
		return fmt.Errorf("pbstore: save ticket: %w", err)
	}
	tk.ID = rec.Id
	tk.CreatedAt = rec.GetDateTime("created").Time()
	return nil
}

func ticketFromRecord(rec *core.Record) *models.Ticket {
	return &models.Ticket{
		ID:         rec.Id,
		Reference:  rec.GetString("reference"),
		EventID:    rec.GetString("event_id"),
		BuyerName:  rec.GetString("buyer_name"),
		BuyerEmail: rec.GetString("buyer_email"),
		Label:      rec.GetString("label"),
		Quantity:   rec.GetInt("quantity"),
		Amount:     int64(rec.GetInt("amount")),
		Status:     rec.GetString("status"),
		Used:       rec.GetBool("used"),
		QRPayload:  rec.GetString("qr_payload"),
		CreatedAt:  rec.GetDateTime("created").Time(),
	}
}

// --- ledger entries ---

func (t *pbTx) TransactionByReference(reference string, typ models.TransactionType) (*models.WalletTransaction, error) {
	rec, err := t.findFirst(collTransactions,
		"reference = {:ref} && type = {:typ}",
		dbx.Params{"ref": reference, "typ": string(typ)})
	if err != nil {
		return nil, err
	}
	return transactionFromRecord(rec), nil
}

func (t *pbTx) AppendTransaction(entry *models.WalletTransaction) error {
	// append-only: always a fresh record
	rec, err := t.newRecord(collTransactions)
	if err != nil {
		return err
	}
	rec.Set("wallet_id", entry.WalletID)
	rec.Set("type", string(entry.Type))
	rec.Set("reference", entry.Reference)
	rec.Set("gross_amount", entry.GrossAmount)
	rec.Set("fee", entry.Fee)
	rec.Set("net_amount", entry.NetAmount)
	rec.Set("note", entry.Note)
	if err := t.app.Save(rec); err != nil {
		return fmt.Errorf("pbstore: append transaction: %w", err)
	}
	entry.ID = rec.Id
	entry.CreatedAt = rec.GetDateTime("created").Time()
	return nil
}

func transactionFromRecord(rec *core.Record) *models.WalletTransaction {
	return &models.WalletTransaction{
		ID:          rec.Id,
		WalletID:    rec.GetString("wallet_id"),
		Type:        models.TransactionType(rec.GetString("type")),
		Reference:   rec.GetString("reference"),
		GrossAmount: int64(rec.GetInt("gross_amount")),
		Fee:         int64(rec.GetInt("fee")),
		NetAmount:   int64(rec.GetInt("net_amount")),
		Note:        rec.GetString("note"),
		CreatedAt:   rec.GetDateTime("created").Time(),
	}
}

// --- withdrawals ---

func (t *pbTx) WithdrawalByReference(reference string) (*models.WithdrawalRequest, error) {
	rec, err := t.findFirst(collWithdrawals, "reference = {:ref}", dbx.Params{"ref": reference})
	if err != nil {
		return nil, err
	}
	return withdrawalFromRecord(rec), nil
}

func (t *pbTx) SaveWithdrawal(wr *models.WithdrawalRequest) error {
	rec, err := t.recordFor(collWithdrawals, wr.ID)
	if err != nil {
		return err
	}
	rec.Set("wallet_id", wr.WalletID)
	rec.Set("owner_id", wr.OwnerID)
	rec.Set("amount", wr.Amount)
	rec.Set("status", string(wr.Status))
	rec.Set("reference", wr.Reference)
	if err := t.app.Save(rec); err != nil {
		return fmt.Errorf("pbstore: save withdrawal: %w", err)
	}
	wr.ID = rec.Id
	wr.CreatedAt = rec.GetDateTime("created").Time()
	wr.UpdatedAt = rec.GetDateTime("updated").Time()
	return nil
}

func withdrawalFromRecord(rec *core.Record) *models.WithdrawalRequest {
	return &models.WithdrawalRequest{
		ID:        rec.Id,
		WalletID:  rec.GetString("wallet_id"),
		OwnerID:   rec.GetString("owner_id"),
		Amount:    int64(rec.GetInt("amount")),
		Status:    models.WithdrawalStatus(rec.GetString("status")),
		Reference: rec.GetString("reference"),
		CreatedAt: rec.GetDateTime("created").Time(),
		UpdatedAt: rec.GetDateTime("updated").Time(),
	}
}

// recordFor loads an existing record or creates a fresh one when id is
// empty.
func (t *pbTx) recordFor(collection, id string) (*core.Record, error) {
	if id == "" {
		return t.newRecord(collection)
	}
	rec, err := t.app.FindRecordById(collection, id)
	if err != nil {
		return nil, fmt.Errorf("pbstore: find %s %s: %w", collection, id, err)
	}
	return rec, nil
}
