// models/equipment.go
package models

import "time"

const EquipmentTable = "lsb_equipment"
const BookingTable = "lsb_booking_requests"
const LoanTable = "lsb_loans"

// Equipment 是库存记录：TotalQuantity 为实物总数，借还决策只认它
type Equipment struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"size:200;not null" json:"name"`
	TotalQuantity int       `gorm:"not null;default:0;check:total_quantity >= 0" json:"totalQuantity"`
	Available     bool      `gorm:"not null" json:"available"` // 冗余列：当前是否还有空闲，仅供展示
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Equipment) TableName() string { return EquipmentTable }
