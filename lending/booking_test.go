package lending_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment_lending/lending"
	"equipment_lending/models"
)

func Test_CreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(3)
	ctx := t.Context()

	cases := []struct {
		name        string
		equipmentID string
		start, end  int
		qty         int
		want        error
	}{
		{"end equal to start", eqID, 1, 1, 1, lending.ErrValidation},
		{"end before start", eqID, 2, 1, 1, lending.ErrValidation},
		{"zero quantity", eqID, 1, 2, 0, lending.ErrValidation},
		{"quantity above total", eqID, 1, 2, 4, lending.ErrValidation},
		{"unknown equipment", "missing", 1, 2, 1, lending.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// act
			b, err := f.svc.Bookings.Create(ctx, "user-1", tc.equipmentID, day(tc.start), day(tc.end), tc.qty)

			// assert
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	all, err := f.svc.ListBookings(ctx, lending.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func Test_CreateBooking_IsPendingAndHoldsNothing(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(2)
	ctx := t.Context()

	// act
	b, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(3), 2)

	// assert
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, b.Status)
	assert.Equal(t, t0, b.CreatedAt)

	free, err := f.svc.AvailableUnits(ctx, eqID, lending.Between(day(1), day(3)))
	require.NoError(t, err)
	assert.Equal(t, 2, free)
}

func Test_ApproveBooking_CreatesLoanOverBookingWindow(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(4)
	ctx := t.Context()
	b, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(3), 3)
	require.NoError(t, err)

	// act
	approved, l, err := f.svc.Bookings.Approve(ctx, b.ID, "admin-1", nil)

	// assert
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, approved.Status)
	require.NotNil(t, approved.AdminNote)
	assert.Equal(t, "Approved by admin-1", *approved.AdminNote)
	assert.Equal(t, "admin-1", *approved.DecidedBy)
	assert.Equal(t, l.ID, *approved.LoanID)

	assert.Equal(t, models.LoanBorrowed, l.Status)
	assert.Equal(t, "user-1", l.BorrowerID)
	assert.Equal(t, 3, l.Quantity)
	assert.Equal(t, day(1), l.BorrowedAt)
	require.NotNil(t, l.DueAt)
	assert.Equal(t, day(3), *l.DueAt)
	assert.Equal(t, b.ID, *l.BookingID)
}

func Test_ApproveBooking_KeepsCustomNote(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	b, err := f.svc.Bookings.Create(t.Context(), "user-1", eqID, day(1), day(2), 1)
	require.NoError(t, err)

	approved, _, err := f.svc.Bookings.Approve(t.Context(), b.ID, "admin-1", ptr("pick up at desk 3"))

	require.NoError(t, err)
	assert.Equal(t, "pick up at desk 3", *approved.AdminNote)
}

func Test_ApproveBooking_InsufficientCapacity(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(2)
	ctx := t.Context()
	first, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(4), 2)
	require.NoError(t, err)
	second, err := f.svc.Bookings.Create(ctx, "user-2", eqID, day(3), day(5), 1)
	require.NoError(t, err)
	_, _, err = f.svc.Bookings.Approve(ctx, first.ID, "admin-1", nil)
	require.NoError(t, err)

	// act
	_, _, err = f.svc.Bookings.Approve(ctx, second.ID, "admin-1", nil)

	// assert
	var capErr *lending.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.ErrorIs(t, err, lending.ErrConflict)
	assert.Equal(t, 0, capErr.Available)
	assert.Equal(t, 1, capErr.Requested)
	assert.False(t, lending.IsRetryable(err))

	still, err := f.svc.Bookings.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, still.Status)
	assert.Nil(t, still.LoanID)
}

func Test_ApproveBooking_AdjacentWindowsDoNotContend(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()
	first, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(3), 1)
	require.NoError(t, err)
	second, err := f.svc.Bookings.Create(ctx, "user-2", eqID, day(3), day(5), 1)
	require.NoError(t, err)

	_, _, err = f.svc.Bookings.Approve(ctx, first.ID, "admin-1", nil)
	require.NoError(t, err)
	_, _, err = f.svc.Bookings.Approve(ctx, second.ID, "admin-1", nil)
	require.NoError(t, err)
}

func Test_DecidedBooking_CannotBeDecidedAgain(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(5)
	ctx := t.Context()

	approved, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(2), 1)
	require.NoError(t, err)
	_, _, err = f.svc.Bookings.Approve(ctx, approved.ID, "admin-1", nil)
	require.NoError(t, err)

	rejected, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(1), day(2), 1)
	require.NoError(t, err)
	_, err = f.svc.Bookings.Reject(ctx, rejected.ID, "admin-2", nil)
	require.NoError(t, err)

	for _, id := range []string{approved.ID, rejected.ID} {
		before, err := f.svc.Bookings.Get(ctx, id)
		require.NoError(t, err)
		f.clock.Advance(time.Hour)

		_, _, err = f.svc.Bookings.Approve(ctx, id, "admin-3", ptr("again"))
		var stateErr *lending.StateError
		require.ErrorAs(t, err, &stateErr)
		assert.ErrorIs(t, err, lending.ErrInvalidState)

		_, err = f.svc.Bookings.Reject(ctx, id, "admin-3", ptr("again"))
		assert.ErrorIs(t, err, lending.ErrInvalidState)

		after, err := f.svc.Bookings.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}

	loans, err := f.svc.ListLoans(ctx, lending.LoanFilter{EquipmentID: eqID})
	require.NoError(t, err)
	assert.Len(t, loans, 1)
}

func Test_RejectBooking_DefaultNote(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	b, err := f.svc.Bookings.Create(t.Context(), "user-1", eqID, day(1), day(2), 1)
	require.NoError(t, err)

	rejected, err := f.svc.Bookings.Reject(t.Context(), b.ID, "admin-1", nil)

	require.NoError(t, err)
	assert.Equal(t, models.BookingRejected, rejected.Status)
	assert.Equal(t, "Rejected by admin-1", *rejected.AdminNote)
	assert.Nil(t, rejected.LoanID)
}

func Test_ApproveBooking_UnknownID(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.Bookings.Approve(t.Context(), "nope", "admin-1", nil)

	var nf *lending.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "booking", nf.Entity)
}
