package db_test

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"equipment_lending/db"
	"equipment_lending/lending"
	"equipment_lending/models"
)

// Needs a disposable database: LENDING_TEST_DATABASE_URL=postgres://...
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("LENDING_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LENDING_TEST_DATABASE_URL not set")
	}
	conn, err := db.Open(dsn, false)
	require.NoError(t, err)
	return conn
}

func seedEquipment(t *testing.T, conn *gorm.DB, total int) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, conn.Create(&models.Equipment{ID: id, Name: "it-" + id[:8], TotalQuantity: total, Available: true}).Error)
	t.Cleanup(func() {
		conn.Where("equipment_id = ?", id).Delete(&models.Loan{})
		conn.Where("equipment_id = ?", id).Delete(&models.BookingRequest{})
		conn.Where("id = ?", id).Delete(&models.Equipment{})
	})
	return id
}

func Test_Repo_SumCommittedMatchesCalculator(t *testing.T) {
	// arrange
	conn := openTestDB(t)
	repo := db.NewRepo(conn)
	eqID := seedEquipment(t, conn, 10)
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	due := base.AddDate(0, 0, 3)
	loans := []models.Loan{
		{ID: uuid.NewString(), EquipmentID: eqID, BorrowerID: uuid.NewString(), BorrowedAt: base, DueAt: &due, Quantity: 2, Status: models.LoanBorrowed},
		{ID: uuid.NewString(), EquipmentID: eqID, BorrowerID: uuid.NewString(), BorrowedAt: base.AddDate(0, 0, 5), Quantity: 1, Status: models.LoanBorrowed},
		{ID: uuid.NewString(), EquipmentID: eqID, BorrowerID: uuid.NewString(), BorrowedAt: base, DueAt: &due, Quantity: 4, Status: models.LoanReturned},
	}
	for i := range loans {
		require.NoError(t, conn.Create(&loans[i]).Error)
	}

	windows := []lending.Window{
		lending.Between(base.AddDate(0, 0, 1), base.AddDate(0, 0, 2)),
		lending.Between(base.AddDate(0, 0, 3), base.AddDate(0, 0, 5)),
		lending.From(base),
		lending.From(base.AddDate(0, 0, 4)),
		lending.At(base),
		lending.At(due),
		lending.At(base.AddDate(5, 0, 0)),
	}

	for _, w := range windows {
		// act
		var got int
		err := repo.Transaction(t.Context(), func(tx lending.Tx) error {
			var err error
			got, err = tx.SumCommitted(t.Context(), eqID, w)
			return err
		})

		// assert
		require.NoError(t, err)
		assert.Equal(t, lending.CommittedSum(loans, w), got, w.String())
	}
}

func Test_RowLockGuard_ConcurrentApprovals(t *testing.T) {
	// arrange
	conn := openTestDB(t)
	repo := db.NewRepo(conn)
	svc, err := lending.New(repo, db.NewRowLockGuard(repo, 5*time.Second, nil))
	require.NoError(t, err)
	eqID := seedEquipment(t, conn, 3)
	start := time.Now().UTC().AddDate(0, 0, 1)

	var ids []string
	for range 2 {
		b, err := svc.Bookings.Create(t.Context(), uuid.NewString(), eqID, start, start.AddDate(0, 0, 2), 2)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	// act
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, errs[i] = svc.Bookings.Approve(t.Context(), id, uuid.NewString(), nil)
		}()
	}
	wg.Wait()

	// assert
	var ok int
	for _, err := range errs {
		var capErr *lending.CapacityError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &capErr):
			assert.Equal(t, 1, capErr.Available)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
}

func Test_Repo_UnknownIDsAreNotFound(t *testing.T) {
	conn := openTestDB(t)
	repo := db.NewRepo(conn)

	err := repo.Transaction(t.Context(), func(tx lending.Tx) error {
		_, err := tx.GetEquipment(t.Context(), "not-a-uuid")
		assert.ErrorIs(t, err, lending.ErrNotFound)
		_, err = tx.GetLoan(t.Context(), uuid.NewString())
		assert.ErrorIs(t, err, lending.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func Test_Repo_CreateEquipmentWithoutStockIsUnavailable(t *testing.T) {
	// arrange
	conn := openTestDB(t)
	repo := db.NewRepo(conn)
	svc, err := lending.New(repo, db.NewRowLockGuard(repo, time.Second, nil))
	require.NoError(t, err)

	// act
	eq, err := svc.CreateEquipment(t.Context(), "it-empty-"+uuid.NewString()[:8], 0)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Where("id = ?", eq.ID).Delete(&models.Equipment{}) })

	// assert
	var stored models.Equipment
	require.NoError(t, conn.First(&stored, "id = ?", eq.ID).Error)
	assert.False(t, stored.Available)
	assert.Equal(t, 0, stored.TotalQuantity)
}
