// models/loan.go
package models

import "time"

type Loan struct {
	ID          string     `gorm:"type:uuid;primaryKey" json:"id"`
	EquipmentID string     `gorm:"type:uuid;index:idx_loan_equipment_status;not null" json:"equipmentId"`
	BorrowerID  string     `gorm:"type:uuid;index;not null" json:"borrowerId"`
	BookingID   *string    `gorm:"type:uuid;uniqueIndex" json:"bookingId,omitempty"`
	BorrowedAt  time.Time  `gorm:"index;not null" json:"borrowedAt"`
	DueAt       *time.Time `json:"dueAt,omitempty"` // nil 表示不限期

	ReturnedAt *time.Time `gorm:"index" json:"returnedAt,omitempty"`
	ReturnedBy *string    `gorm:"type:uuid" json:"returnedBy,omitempty"`

	Quantity  int        `gorm:"not null;default:1;check:quantity >= 1" json:"quantity"`
	Status    LoanStatus `gorm:"size:20;not null;default:'BORROWED';index:idx_loan_equipment_status" json:"status"`
	CreatedAt time.Time  `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (Loan) TableName() string { return LoanTable }

// Covers reports whether the loan holds units at instant t: BorrowedAt <= t < DueAt.
func (l Loan) Covers(t time.Time) bool {
	if l.BorrowedAt.After(t) {
		return false
	}
	return l.DueAt == nil || l.DueAt.After(t)
}
