// models/booking.go
package models

import "time"

// BookingRequest: [StartAt, EndAt) 半开区间，PENDING 不占库存
type BookingRequest struct {
	ID                string        `gorm:"type:uuid;primaryKey" json:"id"`
	EquipmentID       string        `gorm:"type:uuid;index:idx_booking_equipment_status;not null" json:"equipmentId"`
	RequesterID       string        `gorm:"type:uuid;index;not null" json:"requesterId"`
	StartAt           time.Time     `gorm:"not null" json:"startAt"`
	EndAt             time.Time     `gorm:"not null" json:"endAt"`
	QuantityRequested int           `gorm:"not null;default:1" json:"quantityRequested"`
	Status            BookingStatus `gorm:"size:20;not null;default:'PENDING';index:idx_booking_equipment_status" json:"status"`
	AdminNote         *string       `gorm:"size:1000" json:"adminNote,omitempty"`
	DecidedBy         *string       `gorm:"type:uuid" json:"decidedBy,omitempty"`
	LoanID            *string       `gorm:"type:uuid" json:"loanId,omitempty"`
	CreatedAt         time.Time     `gorm:"autoCreateTime:false" json:"createdAt"`
	UpdatedAt         time.Time     `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (BookingRequest) TableName() string { return BookingTable }
