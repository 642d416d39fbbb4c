package lending

import (
	"context"
	"time"

	"github.com/google/uuid"

	"equipment_lending/models"
)

// BookingWorkflow moves booking requests PENDING -> APPROVED | REJECTED.
type BookingWorkflow struct {
	e *engine
}

// Create records a PENDING request for [start, end). No capacity is held.
func (w *BookingWorkflow) Create(ctx context.Context, requesterID, equipmentID string, start, end time.Time, quantity int) (b *models.BookingRequest, err error) {
	defer func(began time.Time) { w.e.observe(opCreateBooking, began, err) }(time.Now())

	if requesterID == "" {
		return nil, &ValidationError{Field: "requesterId", Reason: "is required"}
	}
	if !end.After(start) {
		return nil, &ValidationError{Field: "endAt", Reason: "must be after startAt"}
	}
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantityRequested", Reason: "must be at least 1"}
	}

	err = w.e.store.Transaction(ctx, func(tx Tx) error {
		eq, err := tx.GetEquipment(ctx, equipmentID)
		if err != nil {
			return err
		}
		if quantity > eq.TotalQuantity {
			return &ValidationError{Field: "quantityRequested", Reason: "exceeds total inventory of this equipment"}
		}

		now := w.e.clock.Now()
		b = &models.BookingRequest{
			ID:                uuid.NewString(),
			EquipmentID:       eq.ID,
			RequesterID:       requesterID,
			StartAt:           start,
			EndAt:             end,
			QuantityRequested: quantity,
			Status:            models.BookingPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return tx.CreateBooking(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	w.e.logger.Info("booking created", "booking_id", b.ID, "equipment_id", equipmentID, "requester_id", requesterID, "quantity", quantity)
	return b, nil
}

// Approve turns a PENDING booking into a BORROWED loan over [StartAt, EndAt),
// or fails with *CapacityError when the window cannot hold the requested quantity.
func (w *BookingWorkflow) Approve(ctx context.Context, bookingID, approverID string, note *string) (booking *models.BookingRequest, loan *models.Loan, err error) {
	defer func(began time.Time) { w.e.observe(opApproveBooking, began, err) }(time.Now())

	pending, err := w.get(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if pending.Status != models.BookingPending {
		return nil, nil, bookingStateErr(pending, "approve")
	}

	err = w.e.guard.WithExclusiveLock(ctx, pending.EquipmentID, func(tx Tx, eq *models.Equipment) error {
		// 锁内重读：并发审批同一申请时只有一个能看到 PENDING
		current, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		next, err := current.Status.TransitionTo(models.BookingApproved)
		if err != nil {
			return bookingStateErr(current, "approve")
		}

		committed, err := tx.SumCommitted(ctx, eq.ID, Between(current.StartAt, current.EndAt))
		if err != nil {
			return err
		}
		free := AvailableUnits(eq.TotalQuantity, committed)
		w.e.logger.Debug("approval capacity check",
			"booking_id", current.ID, "equipment_id", eq.ID,
			"total", eq.TotalQuantity, "committed", committed, "available", free, "requested", current.QuantityRequested)
		if eq.TotalQuantity-committed < current.QuantityRequested {
			return &CapacityError{EquipmentID: eq.ID, Available: free, Requested: current.QuantityRequested}
		}

		now := w.e.clock.Now()
		due := current.EndAt
		l := &models.Loan{
			ID:          uuid.NewString(),
			EquipmentID: eq.ID,
			BorrowerID:  current.RequesterID,
			BookingID:   &current.ID,
			BorrowedAt:  current.StartAt,
			DueAt:       &due,
			Quantity:    current.QuantityRequested,
			Status:      models.LoanBorrowed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateLoan(ctx, l); err != nil {
			return err
		}

		current.Status = next
		current.AdminNote = noteOrDefault(note, "Approved by "+approverID)
		current.DecidedBy = &approverID
		current.LoanID = &l.ID
		current.UpdatedAt = now
		if err := tx.UpdateBooking(ctx, current); err != nil {
			return err
		}

		booking, loan = current, l
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	w.e.logger.Info("booking approved", "booking_id", booking.ID, "loan_id", loan.ID, "equipment_id", booking.EquipmentID, "approver_id", approverID)
	w.e.refreshAfterWrite(ctx, booking.EquipmentID)
	return booking, loan, nil
}

// Reject closes a PENDING booking. Inventory is not touched.
func (w *BookingWorkflow) Reject(ctx context.Context, bookingID, approverID string, note *string) (booking *models.BookingRequest, err error) {
	defer func(began time.Time) { w.e.observe(opRejectBooking, began, err) }(time.Now())

	err = w.e.store.Transaction(ctx, func(tx Tx) error {
		current, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		next, err := current.Status.TransitionTo(models.BookingRejected)
		if err != nil {
			return bookingStateErr(current, "reject")
		}

		current.Status = next
		current.AdminNote = noteOrDefault(note, "Rejected by "+approverID)
		current.DecidedBy = &approverID
		current.UpdatedAt = w.e.clock.Now()
		if err := tx.UpdateBooking(ctx, current); err != nil {
			return err
		}
		booking = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	w.e.logger.Info("booking rejected", "booking_id", booking.ID, "approver_id", approverID)
	return booking, nil
}

func (w *BookingWorkflow) Get(ctx context.Context, bookingID string) (*models.BookingRequest, error) {
	return w.get(ctx, bookingID)
}

func (w *BookingWorkflow) get(ctx context.Context, bookingID string) (*models.BookingRequest, error) {
	var b *models.BookingRequest
	err := w.e.store.Transaction(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, bookingID)
		return err
	})
	return b, err
}

func bookingStateErr(b *models.BookingRequest, op string) error {
	return &StateError{Entity: "booking", ID: b.ID, Status: string(b.Status), Op: op, Reason: "only PENDING bookings can be decided"}
}

func noteOrDefault(note *string, fallback string) *string {
	if note != nil && *note != "" {
		n := *note
		return &n
	}
	return &fallback
}
