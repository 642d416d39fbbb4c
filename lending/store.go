package lending

import (
	"context"

	"equipment_lending/models"
)

type BookingFilter struct {
	RequesterID string
	EquipmentID string
	Status      models.BookingStatus
}

type LoanFilter struct {
	BorrowerID  string
	EquipmentID string
	Status      models.LoanStatus
}

// Tx is the record store as seen from inside one unit of work.
// Getters return a *NotFoundError for unknown ids.
type Tx interface {
	GetEquipment(ctx context.Context, id string) (*models.Equipment, error)
	ListEquipment(ctx context.Context) ([]models.Equipment, error)
	CreateEquipment(ctx context.Context, eq *models.Equipment) error
	UpdateEquipment(ctx context.Context, eq *models.Equipment) error
	SetEquipmentAvailable(ctx context.Context, id string, available bool) error

	GetBooking(ctx context.Context, id string) (*models.BookingRequest, error)
	// LockBooking reads the booking and holds it exclusively until the unit of work ends.
	LockBooking(ctx context.Context, id string) (*models.BookingRequest, error)
	CreateBooking(ctx context.Context, b *models.BookingRequest) error
	UpdateBooking(ctx context.Context, b *models.BookingRequest) error
	ListBookings(ctx context.Context, f BookingFilter) ([]models.BookingRequest, error)

	GetLoan(ctx context.Context, id string) (*models.Loan, error)
	// LockLoan reads the loan and holds it exclusively until the unit of work ends.
	LockLoan(ctx context.Context, id string) (*models.Loan, error)
	CreateLoan(ctx context.Context, l *models.Loan) error
	UpdateLoan(ctx context.Context, l *models.Loan) error
	ListLoans(ctx context.Context, f LoanFilter) ([]models.Loan, error)
	// SumCommitted must agree with CommittedSum over the equipment's loans.
	SumCommitted(ctx context.Context, equipmentID string, w Window) (int, error)

	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Store is a durable, transactional record store. fn's writes commit together
// when it returns nil and are discarded otherwise.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Guard serializes capacity decisions per equipment id. fn runs inside one
// transaction with the equipment record read under the lock. Failing to get
// the lock in time yields ErrLockConflict.
type Guard interface {
	WithExclusiveLock(ctx context.Context, equipmentID string, fn func(tx Tx, eq *models.Equipment) error) error
}
