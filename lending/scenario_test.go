package lending_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment_lending/lending"
	"equipment_lending/models"
)

func Test_Scenario_ApprovedBookingReducesAvailability(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(5)
	ctx := t.Context()

	// act
	b, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(3), 3)
	require.NoError(t, err)
	require.Equal(t, models.BookingPending, b.Status)
	approved, l, err := f.svc.Bookings.Approve(ctx, b.ID, "admin-1", nil)
	require.NoError(t, err)

	// assert
	assert.Equal(t, models.BookingApproved, approved.Status)
	assert.Equal(t, 3, l.Quantity)
	assert.Equal(t, models.LoanBorrowed, l.Status)

	during, err := f.svc.AvailableUnits(ctx, eqID, lending.Between(day(1), day(3)))
	require.NoError(t, err)
	assert.Equal(t, 2, during)

	after, err := f.svc.AvailableUnits(ctx, eqID, lending.At(day(3)))
	require.NoError(t, err)
	assert.Equal(t, 5, after)
}

func Test_Scenario_OpenEndedBorrowExhaustsStock(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(5)
	ctx := t.Context()

	// act
	l, err := f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 5, nil)
	require.NoError(t, err)

	// assert
	assert.Nil(t, l.DueAt)
	free, err := f.svc.AvailableUnits(ctx, eqID, lending.At(f.clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, 0, free)

	_, err = f.svc.Loans.BorrowNow(ctx, "user-2", eqID, 1, nil)
	assert.ErrorIs(t, err, lending.ErrConflict)
}

func Test_Scenario_LateReturnIsOverdue(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()
	b, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(3), 1)
	require.NoError(t, err)
	_, l, err := f.svc.Bookings.Approve(ctx, b.ID, "admin-1", nil)
	require.NoError(t, err)
	f.clock.Set(day(5))

	// act
	returned, err := f.svc.Loans.MarkReturned(ctx, l.ID, "user-1", false)

	// assert
	require.NoError(t, err)
	assert.Equal(t, models.LoanOverdue, returned.Status)
	assert.Equal(t, day(5), *returned.ReturnedAt)
}
