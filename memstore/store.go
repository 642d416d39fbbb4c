// Package memstore is an in-process lending.Store. Writes are staged per
// transaction and applied atomically on commit; LockBooking/LockLoan hold a
// per-record mutex until the transaction ends.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"equipment_lending/lending"
	"equipment_lending/locks"
	"equipment_lending/models"
)

type Store struct {
	mu        sync.RWMutex
	equipment map[string]models.Equipment
	bookings  map[string]models.BookingRequest
	loans     map[string]models.Loan
	users     map[string]models.User

	rows     *locks.Keyed
	lockWait time.Duration
}

// New returns an empty store. lockWait bounds how long a row lock is waited for; 0 waits for ctx.
func New(lockWait time.Duration) *Store {
	return &Store{
		equipment: make(map[string]models.Equipment),
		bookings:  make(map[string]models.BookingRequest),
		loans:     make(map[string]models.Loan),
		users:     make(map[string]models.User),
		rows:      locks.NewKeyed(),
		lockWait:  lockWait,
	}
}

func (s *Store) PutEquipment(eq models.Equipment) {
	s.mu.Lock()
	s.equipment[eq.ID] = eq
	s.mu.Unlock()
}

func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	s.users[u.ID] = u
	s.mu.Unlock()
}

func (s *Store) PutLoan(l models.Loan) {
	s.mu.Lock()
	s.loans[l.ID] = l
	s.mu.Unlock()
}

func (s *Store) Transaction(ctx context.Context, fn func(tx lending.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		s:         s,
		equipment: make(map[string]models.Equipment),
		created:   make(map[string]bool),
		available: make(map[string]bool),
		bookings:  make(map[string]models.BookingRequest),
		loans:     make(map[string]models.Loan),
	}
	defer tx.releaseRows()

	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// 已有设备按列合并，同 UPDATE ... SET
	for id, eq := range tx.equipment {
		cur, ok := s.equipment[id]
		if tx.created[id] || !ok {
			s.equipment[id] = eq
			continue
		}
		cur.Name = eq.Name
		cur.TotalQuantity = eq.TotalQuantity
		cur.UpdatedAt = eq.UpdatedAt
		s.equipment[id] = cur
	}
	for id, available := range tx.available {
		if cur, ok := s.equipment[id]; ok {
			cur.Available = available
			s.equipment[id] = cur
		}
	}
	for id, b := range tx.bookings {
		s.bookings[id] = b
	}
	for id, l := range tx.loans {
		s.loans[id] = l
	}
}

type memTx struct {
	s *Store

	equipment map[string]models.Equipment
	created   map[string]bool
	available map[string]bool // SetEquipmentAvailable 只改这一列
	bookings  map[string]models.BookingRequest
	loans     map[string]models.Loan

	held []func()
}

func (tx *memTx) releaseRows() {
	for i := len(tx.held) - 1; i >= 0; i-- {
		tx.held[i]()
	}
}

func (tx *memTx) lockRow(ctx context.Context, key string) error {
	release, err := tx.s.rows.Acquire(ctx, key, tx.s.lockWait)
	if errors.Is(err, locks.ErrNotAcquired) {
		return fmt.Errorf("%w: row %s", lending.ErrLockConflict, key)
	}
	if err != nil {
		return err
	}
	tx.held = append(tx.held, release)
	return nil
}

// equipment

func (tx *memTx) GetEquipment(_ context.Context, id string) (*models.Equipment, error) {
	eq, ok := tx.equipment[id]
	if !ok {
		tx.s.mu.RLock()
		eq, ok = tx.s.equipment[id]
		tx.s.mu.RUnlock()
	}
	if !ok {
		return nil, &lending.NotFoundError{Entity: "equipment", ID: id}
	}
	if available, patched := tx.available[id]; patched {
		eq.Available = available
	}
	return &eq, nil
}

func (tx *memTx) ListEquipment(_ context.Context) ([]models.Equipment, error) {
	merged := make(map[string]models.Equipment)
	tx.s.mu.RLock()
	for id, eq := range tx.s.equipment {
		merged[id] = eq
	}
	tx.s.mu.RUnlock()
	for id, eq := range tx.equipment {
		merged[id] = eq
	}
	for id, available := range tx.available {
		if eq, ok := merged[id]; ok {
			eq.Available = available
			merged[id] = eq
		}
	}

	out := make([]models.Equipment, 0, len(merged))
	for _, eq := range merged {
		out = append(out, eq)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memTx) CreateEquipment(_ context.Context, eq *models.Equipment) error {
	tx.equipment[eq.ID] = *eq
	tx.created[eq.ID] = true
	return nil
}

func (tx *memTx) UpdateEquipment(ctx context.Context, eq *models.Equipment) error {
	if _, err := tx.GetEquipment(ctx, eq.ID); err != nil {
		return err
	}
	tx.equipment[eq.ID] = *eq
	return nil
}

func (tx *memTx) SetEquipmentAvailable(ctx context.Context, id string, available bool) error {
	if _, err := tx.GetEquipment(ctx, id); err != nil {
		return err
	}
	tx.available[id] = available
	return nil
}

// bookings

func (tx *memTx) GetBooking(_ context.Context, id string) (*models.BookingRequest, error) {
	if b, ok := tx.bookings[id]; ok {
		return &b, nil
	}
	tx.s.mu.RLock()
	b, ok := tx.s.bookings[id]
	tx.s.mu.RUnlock()
	if !ok {
		return nil, &lending.NotFoundError{Entity: "booking", ID: id}
	}
	return &b, nil
}

func (tx *memTx) LockBooking(ctx context.Context, id string) (*models.BookingRequest, error) {
	if err := tx.lockRow(ctx, "booking:"+id); err != nil {
		return nil, err
	}
	return tx.GetBooking(ctx, id)
}

func (tx *memTx) CreateBooking(_ context.Context, b *models.BookingRequest) error {
	tx.bookings[b.ID] = *b
	return nil
}

func (tx *memTx) UpdateBooking(ctx context.Context, b *models.BookingRequest) error {
	if _, err := tx.GetBooking(ctx, b.ID); err != nil {
		return err
	}
	tx.bookings[b.ID] = *b
	return nil
}

func (tx *memTx) ListBookings(_ context.Context, f lending.BookingFilter) ([]models.BookingRequest, error) {
	merged := make(map[string]models.BookingRequest)
	tx.s.mu.RLock()
	for id, b := range tx.s.bookings {
		merged[id] = b
	}
	tx.s.mu.RUnlock()
	for id, b := range tx.bookings {
		merged[id] = b
	}

	out := make([]models.BookingRequest, 0)
	for _, b := range merged {
		if f.RequesterID != "" && b.RequesterID != f.RequesterID {
			continue
		}
		if f.EquipmentID != "" && b.EquipmentID != f.EquipmentID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// loans

func (tx *memTx) GetLoan(_ context.Context, id string) (*models.Loan, error) {
	if l, ok := tx.loans[id]; ok {
		return &l, nil
	}
	tx.s.mu.RLock()
	l, ok := tx.s.loans[id]
	tx.s.mu.RUnlock()
	if !ok {
		return nil, &lending.NotFoundError{Entity: "loan", ID: id}
	}
	return &l, nil
}

func (tx *memTx) LockLoan(ctx context.Context, id string) (*models.Loan, error) {
	if err := tx.lockRow(ctx, "loan:"+id); err != nil {
		return nil, err
	}
	return tx.GetLoan(ctx, id)
}

func (tx *memTx) CreateLoan(_ context.Context, l *models.Loan) error {
	tx.loans[l.ID] = *l
	return nil
}

func (tx *memTx) UpdateLoan(ctx context.Context, l *models.Loan) error {
	if _, err := tx.GetLoan(ctx, l.ID); err != nil {
		return err
	}
	tx.loans[l.ID] = *l
	return nil
}

func (tx *memTx) ListLoans(_ context.Context, f lending.LoanFilter) ([]models.Loan, error) {
	out := make([]models.Loan, 0)
	for _, l := range tx.mergedLoans() {
		if f.BorrowerID != "" && l.BorrowerID != f.BorrowerID {
			continue
		}
		if f.EquipmentID != "" && l.EquipmentID != f.EquipmentID {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowedAt.Equal(out[j].BorrowedAt) {
			return out[i].BorrowedAt.After(out[j].BorrowedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (tx *memTx) SumCommitted(_ context.Context, equipmentID string, w lending.Window) (int, error) {
	var loans []models.Loan
	for _, l := range tx.mergedLoans() {
		if l.EquipmentID == equipmentID {
			loans = append(loans, l)
		}
	}
	return lending.CommittedSum(loans, w), nil
}

func (tx *memTx) mergedLoans() map[string]models.Loan {
	merged := make(map[string]models.Loan)
	tx.s.mu.RLock()
	for id, l := range tx.s.loans {
		merged[id] = l
	}
	tx.s.mu.RUnlock()
	for id, l := range tx.loans {
		merged[id] = l
	}
	return merged
}

// users

func (tx *memTx) GetUser(_ context.Context, id string) (*models.User, error) {
	tx.s.mu.RLock()
	u, ok := tx.s.users[id]
	tx.s.mu.RUnlock()
	if !ok {
		return nil, &lending.NotFoundError{Entity: "user", ID: id}
	}
	return &u, nil
}

func (tx *memTx) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	for _, u := range tx.s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, &lending.NotFoundError{Entity: "user", ID: username}
}

func (s *Store) TouchUserSeen(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		now := time.Now().UTC()
		u.LastSeenAt = &now
		s.users[userID] = u
	}
	return nil
}

func (s *Store) PromoteAdmin(_ context.Context, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Username == username {
			u.IsAdmin = true
			s.users[id] = u
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CountAdmins(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, u := range s.users {
		if u.IsAdmin {
			n++
		}
	}
	return n, nil
}
