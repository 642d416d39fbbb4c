package lending_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"equipment_lending/lending"
	"equipment_lending/locks"
	"equipment_lending/memstore"
	"equipment_lending/models"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func day(n int) time.Time { return t0.AddDate(0, 0, n) }

func ptr[T any](v T) *T { return &v }

type fixture struct {
	store *memstore.Store
	clock *lending.FixedClock
	svc   *lending.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New(2 * time.Second)
	clock := lending.NewFixedClock(t0)
	guard := locks.NewLocalGuard(store, 5*time.Second, nil)
	svc, err := lending.New(store, guard, lending.WithClock(clock))
	require.NoError(t, err)

	return &fixture{store: store, clock: clock, svc: svc}
}

func (f *fixture) equipment(total int) string {
	id := uuid.NewString()
	f.store.PutEquipment(models.Equipment{
		ID:            id,
		Name:          "Tripod " + id[:8],
		TotalQuantity: total,
		Available:     total > 0,
	})
	return id
}

// committedAt sums BORROWED quantity of equipmentID at instant at, straight from the store.
func (f *fixture) committedAt(t *testing.T, equipmentID string, at time.Time) int {
	t.Helper()
	loans, err := f.svc.ListLoans(t.Context(), lending.LoanFilter{EquipmentID: equipmentID})
	require.NoError(t, err)
	return lending.CommittedSum(loans, lending.At(at))
}
