// Package lending decides who gets which units of a piece of equipment and when.
//
// Capacity is never cached: every decision recomputes the committed quantity
// from the loan ledger while holding the equipment's exclusive lock (see Guard).
// Bookings hold no capacity until they are approved into loans.
package lending

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"equipment_lending/models"
)

const (
	opCreateBooking  = "create_booking"
	opApproveBooking = "approve_booking"
	opRejectBooking  = "reject_booking"
	opBorrowNow      = "borrow_now"
	opMarkReturned   = "mark_returned"
	opCancelLoan     = "cancel_loan"
	opSetQuantity    = "set_total_quantity"
)

type engine struct {
	store   Store
	guard   Guard
	clock   Clock
	logger  Logger
	metrics Metrics
}

// Service is the lending engine: booking workflow, loan ledger and the read side.
type Service struct {
	*engine

	Bookings *BookingWorkflow
	Loans    *LoanLedger
}

// New wires a Service over store, serializing capacity decisions through guard.
func New(store Store, guard Guard, options ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lending: store is required")
	}
	if guard == nil {
		return nil, errors.New("lending: guard is required")
	}

	e := &engine{
		store:   store,
		guard:   guard,
		clock:   SystemClock{},
		logger:  nopLogger{},
		metrics: nopMetrics{},
	}
	for _, opt := range options {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	return &Service{
		engine:   e,
		Bookings: &BookingWorkflow{e: e},
		Loans:    &LoanLedger{e: e},
	}, nil
}

// Now is the engine's clock reading.
func (s *Service) Now() time.Time { return s.clock.Now() }

func (e *engine) observe(op string, began time.Time, err error) {
	e.metrics.ObserveDecision(op, Outcome(err), time.Since(began))
	if err != nil && Outcome(err) == "error" {
		e.logger.Error("lending operation failed", "operation", op, "error", err.Error())
	}
}

// AvailableUnits is total minus the quantity committed over w, floored at zero.
// It takes no lock; the answer is advisory.
func (s *Service) AvailableUnits(ctx context.Context, equipmentID string, w Window) (int, error) {
	var free int
	err := s.store.Transaction(ctx, func(tx Tx) error {
		eq, err := tx.GetEquipment(ctx, equipmentID)
		if err != nil {
			return err
		}
		committed, err := tx.SumCommitted(ctx, eq.ID, w)
		if err != nil {
			return err
		}
		free = AvailableUnits(eq.TotalQuantity, committed)
		return nil
	})
	return free, err
}

// RefreshAvailability recomputes the cached Available flag from the units free right now.
func (s *Service) RefreshAvailability(ctx context.Context, equipmentID string) error {
	return s.engine.refreshAvailability(ctx, equipmentID)
}

func (e *engine) refreshAvailability(ctx context.Context, equipmentID string) error {
	return e.store.Transaction(ctx, func(tx Tx) error {
		eq, err := tx.GetEquipment(ctx, equipmentID)
		if err != nil {
			return err
		}
		committed, err := tx.SumCommitted(ctx, eq.ID, At(e.clock.Now()))
		if err != nil {
			return err
		}
		available := AvailableUnits(eq.TotalQuantity, committed) > 0
		if available == eq.Available {
			return nil
		}
		return tx.SetEquipmentAvailable(ctx, eq.ID, available)
	})
}

// refreshAfterWrite never fails the caller; the flag is display-only.
func (e *engine) refreshAfterWrite(ctx context.Context, equipmentID string) {
	if err := e.refreshAvailability(ctx, equipmentID); err != nil {
		e.logger.Warn("availability refresh failed", "equipment_id", equipmentID, "error", err.Error())
	}
}

// RefreshAllAvailability sweeps every item. Per-item failures are logged and counted.
func (s *Service) RefreshAllAvailability(ctx context.Context) (refreshed int, failed int, err error) {
	var items []models.Equipment
	err = s.store.Transaction(ctx, func(tx Tx) error {
		var err error
		items, err = tx.ListEquipment(ctx)
		return err
	})
	if err != nil {
		return 0, 0, err
	}

	for _, eq := range items {
		if err := ctx.Err(); err != nil {
			return refreshed, failed, err
		}
		if err := s.engine.refreshAvailability(ctx, eq.ID); err != nil {
			failed++
			s.logger.Warn("availability refresh failed", "equipment_id", eq.ID, "error", err.Error())
			continue
		}
		refreshed++
	}
	return refreshed, failed, nil
}

// EquipmentAvailability is an item together with its live free units.
type EquipmentAvailability struct {
	models.Equipment
	AvailableUnits int `json:"availableUnits"`
}

// ListEquipment returns every item with the units free right now.
func (s *Service) ListEquipment(ctx context.Context) ([]EquipmentAvailability, error) {
	now := s.clock.Now()
	var out []EquipmentAvailability
	err := s.store.Transaction(ctx, func(tx Tx) error {
		items, err := tx.ListEquipment(ctx)
		if err != nil {
			return err
		}
		out = make([]EquipmentAvailability, 0, len(items))
		for _, eq := range items {
			committed, err := tx.SumCommitted(ctx, eq.ID, At(now))
			if err != nil {
				return err
			}
			out = append(out, EquipmentAvailability{Equipment: eq, AvailableUnits: AvailableUnits(eq.TotalQuantity, committed)})
		}
		return nil
	})
	return out, err
}

func (s *Service) Equipment(ctx context.Context, id string) (*EquipmentAvailability, error) {
	var out *EquipmentAvailability
	err := s.store.Transaction(ctx, func(tx Tx) error {
		eq, err := tx.GetEquipment(ctx, id)
		if err != nil {
			return err
		}
		committed, err := tx.SumCommitted(ctx, eq.ID, At(s.clock.Now()))
		if err != nil {
			return err
		}
		out = &EquipmentAvailability{Equipment: *eq, AvailableUnits: AvailableUnits(eq.TotalQuantity, committed)}
		return nil
	})
	return out, err
}

// CreateEquipment adds a catalog item.
func (s *Service) CreateEquipment(ctx context.Context, name string, totalQuantity int) (*models.Equipment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required"}
	}
	if totalQuantity < 0 {
		return nil, &ValidationError{Field: "totalQuantity", Reason: "must not be negative"}
	}

	now := s.clock.Now()
	eq := &models.Equipment{
		ID:            uuid.NewString(),
		Name:          name,
		TotalQuantity: totalQuantity,
		Available:     totalQuantity > 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Transaction(ctx, func(tx Tx) error { return tx.CreateEquipment(ctx, eq) }); err != nil {
		return nil, err
	}
	s.logger.Info("equipment created", "equipment_id", eq.ID, "total_quantity", totalQuantity)
	return eq, nil
}

// SetTotalQuantity changes an item's stock under its lock. Shrinking below the
// peak quantity committed from now on is refused.
func (s *Service) SetTotalQuantity(ctx context.Context, equipmentID string, total int) (eq *models.Equipment, err error) {
	defer func(began time.Time) { s.observe(opSetQuantity, began, err) }(time.Now())

	if total < 0 {
		return nil, &ValidationError{Field: "totalQuantity", Reason: "must not be negative"}
	}

	err = s.guard.WithExclusiveLock(ctx, equipmentID, func(tx Tx, locked *models.Equipment) error {
		now := s.clock.Now()
		loans, err := tx.ListLoans(ctx, LoanFilter{EquipmentID: locked.ID, Status: models.LoanBorrowed})
		if err != nil {
			return err
		}
		peak := PeakCommitted(loans, From(now))
		s.logger.Debug("quantity change check", "equipment_id", locked.ID, "current_total", locked.TotalQuantity, "new_total", total, "peak_committed", peak)
		if total < peak {
			return &CapacityError{EquipmentID: locked.ID, Available: total, Requested: peak}
		}

		locked.TotalQuantity = total
		locked.UpdatedAt = now
		if err := tx.UpdateEquipment(ctx, locked); err != nil {
			return err
		}
		eq = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("equipment quantity changed", "equipment_id", equipmentID, "total_quantity", total)
	s.refreshAfterWrite(ctx, equipmentID)
	return eq, nil
}

// ListBookings returns bookings matching f, oldest first.
func (s *Service) ListBookings(ctx context.Context, f BookingFilter) ([]models.BookingRequest, error) {
	var out []models.BookingRequest
	err := s.store.Transaction(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListBookings(ctx, f)
		return err
	})
	return out, err
}

// ListLoans returns loans matching f, newest first.
func (s *Service) ListLoans(ctx context.Context, f LoanFilter) ([]models.Loan, error) {
	var out []models.Loan
	err := s.store.Transaction(ctx, func(tx Tx) error {
		var err error
		out, err = tx.ListLoans(ctx, f)
		return err
	})
	return out, err
}

func (s *Service) User(ctx context.Context, id string) (*models.User, error) {
	var u *models.User
	err := s.store.Transaction(ctx, func(tx Tx) error {
		var err error
		u, err = tx.GetUser(ctx, id)
		return err
	})
	return u, err
}

func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u *models.User
	err := s.store.Transaction(ctx, func(tx Tx) error {
		var err error
		u, err = tx.GetUserByUsername(ctx, strings.TrimSpace(username))
		return err
	})
	return u, err
}
