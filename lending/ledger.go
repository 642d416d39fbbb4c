package lending

import (
	"context"
	"time"

	"github.com/google/uuid"

	"equipment_lending/models"
)

// LoanLedger creates immediate loans and closes existing ones.
type LoanLedger struct {
	e *engine
}

// BorrowNow lends quantity units starting now. A nil durationDays means the
// loan has no due date and holds its units until returned.
func (g *LoanLedger) BorrowNow(ctx context.Context, borrowerID, equipmentID string, quantity int, durationDays *int) (loan *models.Loan, err error) {
	defer func(began time.Time) { g.e.observe(opBorrowNow, began, err) }(time.Now())

	if borrowerID == "" {
		return nil, &ValidationError{Field: "borrowerId", Reason: "is required"}
	}
	if quantity < 1 {
		return nil, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if durationDays != nil && *durationDays < 1 {
		return nil, &ValidationError{Field: "durationDays", Reason: "must be at least 1 when given"}
	}

	err = g.e.guard.WithExclusiveLock(ctx, equipmentID, func(tx Tx, eq *models.Equipment) error {
		now := g.e.clock.Now()
		w := From(now)
		var due *time.Time
		if durationDays != nil {
			d := now.AddDate(0, 0, *durationDays)
			due = &d
			w = Between(now, d)
		}

		committed, err := tx.SumCommitted(ctx, eq.ID, w)
		if err != nil {
			return err
		}
		free := AvailableUnits(eq.TotalQuantity, committed)
		g.e.logger.Debug("borrow capacity check",
			"equipment_id", eq.ID, "window", w.String(),
			"total", eq.TotalQuantity, "committed", committed, "available", free, "requested", quantity)
		if eq.TotalQuantity-committed < quantity {
			return &CapacityError{EquipmentID: eq.ID, Available: free, Requested: quantity}
		}

		l := &models.Loan{
			ID:          uuid.NewString(),
			EquipmentID: eq.ID,
			BorrowerID:  borrowerID,
			BorrowedAt:  now,
			DueAt:       due,
			Quantity:    quantity,
			Status:      models.LoanBorrowed,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.CreateLoan(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.e.logger.Info("loan created", "loan_id", loan.ID, "equipment_id", equipmentID, "borrower_id", borrowerID, "quantity", quantity)
	g.e.refreshAfterWrite(ctx, equipmentID)
	return loan, nil
}

// MarkReturned closes a loan as RETURNED, or OVERDUE when it comes back after DueAt.
// Only the borrower or an admin may return it, and only once.
func (g *LoanLedger) MarkReturned(ctx context.Context, loanID, actorID string, isAdmin bool) (loan *models.Loan, err error) {
	defer func(began time.Time) { g.e.observe(opMarkReturned, began, err) }(time.Now())

	err = g.e.store.Transaction(ctx, func(tx Tx) error {
		l, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if l.BorrowerID != actorID && !isAdmin {
			return &ForbiddenError{ActorID: actorID, Op: "return", LoanID: l.ID}
		}
		if l.ReturnedAt != nil {
			return ErrAlreadyReturned
		}

		now := g.e.clock.Now()
		target := models.LoanReturned
		if l.DueAt != nil && now.After(*l.DueAt) {
			target = models.LoanOverdue
		}
		next, err := l.Status.TransitionTo(target)
		if err != nil {
			return &StateError{Entity: "loan", ID: l.ID, Status: string(l.Status), Op: "return"}
		}

		l.Status = next
		l.ReturnedAt = &now
		l.ReturnedBy = &actorID
		l.UpdatedAt = now
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.e.logger.Info("loan returned", "loan_id", loan.ID, "equipment_id", loan.EquipmentID, "status", string(loan.Status), "actor_id", actorID)
	g.e.refreshAfterWrite(ctx, loan.EquipmentID)
	return loan, nil
}

// Cancel releases a loan that has not started yet.
func (g *LoanLedger) Cancel(ctx context.Context, loanID, actorID string, isAdmin bool) (loan *models.Loan, err error) {
	defer func(began time.Time) { g.e.observe(opCancelLoan, began, err) }(time.Now())

	err = g.e.store.Transaction(ctx, func(tx Tx) error {
		l, err := tx.LockLoan(ctx, loanID)
		if err != nil {
			return err
		}
		if l.BorrowerID != actorID && !isAdmin {
			return &ForbiddenError{ActorID: actorID, Op: "cancel", LoanID: l.ID}
		}

		now := g.e.clock.Now()
		if l.Status == models.LoanBorrowed && !now.Before(l.BorrowedAt) {
			return &StateError{Entity: "loan", ID: l.ID, Status: string(l.Status), Op: "cancel", Reason: "loan has already started"}
		}
		next, err := l.Status.TransitionTo(models.LoanCancelled)
		if err != nil {
			return &StateError{Entity: "loan", ID: l.ID, Status: string(l.Status), Op: "cancel"}
		}

		l.Status = next
		l.UpdatedAt = now
		if err := tx.UpdateLoan(ctx, l); err != nil {
			return err
		}
		loan = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	g.e.logger.Info("loan cancelled", "loan_id", loan.ID, "equipment_id", loan.EquipmentID, "actor_id", actorID)
	g.e.refreshAfterWrite(ctx, loan.EquipmentID)
	return loan, nil
}

func (g *LoanLedger) Get(ctx context.Context, loanID string) (*models.Loan, error) {
	var l *models.Loan
	err := g.e.store.Transaction(ctx, func(tx Tx) error {
		var err error
		l, err = tx.GetLoan(ctx, loanID)
		return err
	})
	return l, err
}
