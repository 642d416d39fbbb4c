package db

import (
	"context"

	"gorm.io/gorm/clause"

	"equipment_lending/lending"
	"equipment_lending/models"
)

func (r *Repo) GetBooking(ctx context.Context, id string) (*models.BookingRequest, error) {
	if err := validID("booking", id); err != nil {
		return nil, err
	}
	var b models.BookingRequest
	if err := r.DB.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "booking", id)
	}
	return &b, nil
}

// LockBooking 行锁，直到事务结束
func (r *Repo) LockBooking(ctx context.Context, id string) (*models.BookingRequest, error) {
	if err := validID("booking", id); err != nil {
		return nil, err
	}
	var b models.BookingRequest
	if err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "booking", id)
	}
	return &b, nil
}

func (r *Repo) CreateBooking(ctx context.Context, b *models.BookingRequest) error {
	return r.DB.WithContext(ctx).Create(b).Error
}

func (r *Repo) UpdateBooking(ctx context.Context, b *models.BookingRequest) error {
	return r.DB.WithContext(ctx).Model(&models.BookingRequest{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"status":     b.Status,
			"admin_note": b.AdminNote,
			"decided_by": b.DecidedBy,
			"loan_id":    b.LoanID,
			"updated_at": b.UpdatedAt,
		}).Error
}

func (r *Repo) ListBookings(ctx context.Context, f lending.BookingFilter) ([]models.BookingRequest, error) {
	q := r.DB.WithContext(ctx).Model(&models.BookingRequest{}).Order("created_at ASC, id ASC")
	if f.RequesterID != "" {
		q = q.Where("requester_id = ?", f.RequesterID)
	}
	if f.EquipmentID != "" {
		q = q.Where("equipment_id = ?", f.EquipmentID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var bs []models.BookingRequest
	if err := q.Find(&bs).Error; err != nil {
		return nil, err
	}
	return bs, nil
}
