package db

import (
	"context"

	"gorm.io/gorm/clause"

	"equipment_lending/lending"
	"equipment_lending/models"
)

func (r *Repo) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	if err := validID("loan", id); err != nil {
		return nil, err
	}
	var l models.Loan
	if err := r.DB.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "loan", id)
	}
	return &l, nil
}

func (r *Repo) LockLoan(ctx context.Context, id string) (*models.Loan, error) {
	if err := validID("loan", id); err != nil {
		return nil, err
	}
	var l models.Loan
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&l, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "loan", id)
	}
	return &l, nil
}

func (r *Repo) CreateLoan(ctx context.Context, l *models.Loan) error {
	return r.DB.WithContext(ctx).Create(l).Error
}

func (r *Repo) UpdateLoan(ctx context.Context, l *models.Loan) error {
	return r.DB.WithContext(ctx).Model(&models.Loan{}).
		Where("id = ?", l.ID).
		Updates(map[string]any{
			"status":      l.Status,
			"returned_at": l.ReturnedAt,
			"returned_by": l.ReturnedBy,
			"updated_at":  l.UpdatedAt,
		}).Error
}

func (r *Repo) ListLoans(ctx context.Context, f lending.LoanFilter) ([]models.Loan, error) {
	q := r.DB.WithContext(ctx).Model(&models.Loan{}).Order("borrowed_at DESC, id ASC")
	if f.BorrowerID != "" {
		q = q.Where("borrower_id = ?", f.BorrowerID)
	}
	if f.EquipmentID != "" {
		q = q.Where("equipment_id = ?", f.EquipmentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var ls []models.Loan
	if err := q.Find(&ls).Error; err != nil {
		return nil, err
	}
	return ls, nil
}

// SumCommitted evaluates lending.Window.Contends in SQL; due_at NULL never ends.
func (r *Repo) SumCommitted(ctx context.Context, equipmentID string, w lending.Window) (int, error) {
	q := r.DB.WithContext(ctx).Model(&models.Loan{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("equipment_id = ? AND status = ?", equipmentID, models.LoanBorrowed)

	if w.Instant() {
		at := w.Start()
		q = q.Where("borrowed_at <= ? AND (due_at IS NULL OR due_at > ?)", at, at)
	} else {
		if end, ok := w.End(); ok {
			q = q.Where("borrowed_at < ?", end)
		}
		q = q.Where("(due_at IS NULL OR due_at > ?)", w.Start())
	}

	var sum int64
	if err := q.Scan(&sum).Error; err != nil {
		return 0, err
	}
	return int(sum), nil
}
