package lending_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment_lending/lending"
	"equipment_lending/models"
)

func Test_BorrowNow_Validation(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(2)
	ctx := t.Context()

	_, err := f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 0, nil)
	assert.ErrorIs(t, err, lending.ErrValidation)

	_, err = f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 1, ptr(0))
	assert.ErrorIs(t, err, lending.ErrValidation)

	_, err = f.svc.Loans.BorrowNow(ctx, "user-1", "missing", 1, nil)
	assert.ErrorIs(t, err, lending.ErrNotFound)

	_, err = f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 3, nil)
	var capErr *lending.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 3, capErr.Requested)
}

func Test_BorrowNow_AboveTotalReportsFreeUnits(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(3)
	_, err := f.svc.Loans.BorrowNow(t.Context(), "user-1", eqID, 2, ptr(3))
	require.NoError(t, err)

	// act
	_, err = f.svc.Loans.BorrowNow(t.Context(), "user-2", eqID, 4, ptr(1))

	// assert
	var capErr *lending.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 1, capErr.Available)
	assert.Equal(t, 4, capErr.Requested)
}

func Test_BorrowNow_WithDuration(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(2)

	// act
	l, err := f.svc.Loans.BorrowNow(t.Context(), "user-1", eqID, 1, ptr(7))

	// assert
	require.NoError(t, err)
	assert.Equal(t, t0, l.BorrowedAt)
	require.NotNil(t, l.DueAt)
	assert.Equal(t, day(7), *l.DueAt)
	assert.Nil(t, l.BookingID)
	assert.Equal(t, models.LoanBorrowed, l.Status)
}

func Test_BorrowNow_ConflictsWithFutureApprovedLoan(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()
	b, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(30), day(31), 1)
	require.NoError(t, err)
	_, _, err = f.svc.Bookings.Approve(ctx, b.ID, "admin-1", nil)
	require.NoError(t, err)

	// 不限期借用会覆盖未来所有时间
	_, err = f.svc.Loans.BorrowNow(ctx, "user-2", eqID, 1, nil)
	assert.ErrorIs(t, err, lending.ErrConflict)

	// 在预约开始前归还则不冲突
	_, err = f.svc.Loans.BorrowNow(ctx, "user-2", eqID, 1, ptr(5))
	assert.NoError(t, err)
}

func Test_BorrowNow_OpenEndedBlocksLaterBookings(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()
	_, err := f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 1, nil)
	require.NoError(t, err)

	b, err := f.svc.Bookings.Create(ctx, "user-2", eqID, day(3650), day(3651), 1)
	require.NoError(t, err)
	_, _, err = f.svc.Bookings.Approve(ctx, b.ID, "admin-1", nil)

	var capErr *lending.CapacityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 0, capErr.Available)
}

func Test_MarkReturned_ByBorrower(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()
	l, err := f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 1, ptr(3))
	require.NoError(t, err)
	f.clock.Advance(24 * time.Hour)

	// act
	returned, err := f.svc.Loans.MarkReturned(ctx, l.ID, "user-1", false)

	// assert
	require.NoError(t, err)
	assert.Equal(t, models.LoanReturned, returned.Status)
	assert.Equal(t, day(1), *returned.ReturnedAt)
	assert.Equal(t, "user-1", *returned.ReturnedBy)

	free, err := f.svc.AvailableUnits(ctx, eqID, lending.At(f.clock.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, free)
}

func Test_MarkReturned_ByStranger(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	l, err := f.svc.Loans.BorrowNow(t.Context(), "user-1", eqID, 1, nil)
	require.NoError(t, err)

	_, err = f.svc.Loans.MarkReturned(t.Context(), l.ID, "user-2", false)
	assert.ErrorIs(t, err, lending.ErrForbidden)

	returned, err := f.svc.Loans.MarkReturned(t.Context(), l.ID, "admin-1", true)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", *returned.ReturnedBy)
}

func Test_MarkReturned_Twice(t *testing.T) {
	// arrange
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()
	l, err := f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 1, nil)
	require.NoError(t, err)
	first, err := f.svc.Loans.MarkReturned(ctx, l.ID, "user-1", false)
	require.NoError(t, err)
	f.clock.Advance(time.Hour)

	// act
	_, err = f.svc.Loans.MarkReturned(ctx, l.ID, "user-1", false)

	// assert
	assert.ErrorIs(t, err, lending.ErrAlreadyReturned)
	assert.ErrorIs(t, err, lending.ErrConflict)

	after, err := f.svc.Loans.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ReturnedAt, *after.ReturnedAt)
	assert.Equal(t, first.Status, after.Status)
}

func Test_MarkReturned_UnknownLoan(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Loans.MarkReturned(t.Context(), "nope", "user-1", true)

	assert.ErrorIs(t, err, lending.ErrNotFound)
}

func Test_CancelLoan(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()
	b, err := f.svc.Bookings.Create(ctx, "user-1", eqID, day(2), day(4), 1)
	require.NoError(t, err)
	_, future, err := f.svc.Bookings.Approve(ctx, b.ID, "admin-1", nil)
	require.NoError(t, err)

	t.Run("stranger is forbidden", func(t *testing.T) {
		_, err := f.svc.Loans.Cancel(ctx, future.ID, "user-2", false)
		assert.ErrorIs(t, err, lending.ErrForbidden)
	})

	t.Run("not started loan is released", func(t *testing.T) {
		cancelled, err := f.svc.Loans.Cancel(ctx, future.ID, "user-1", false)
		require.NoError(t, err)
		assert.Equal(t, models.LoanCancelled, cancelled.Status)

		free, err := f.svc.AvailableUnits(ctx, eqID, lending.Between(day(2), day(4)))
		require.NoError(t, err)
		assert.Equal(t, 1, free)

		kept, err := f.svc.Bookings.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BookingApproved, kept.Status)
	})

	t.Run("cancelled loan cannot be returned", func(t *testing.T) {
		_, err := f.svc.Loans.MarkReturned(ctx, future.ID, "user-1", false)
		assert.ErrorIs(t, err, lending.ErrInvalidState)
	})

	t.Run("started loan cannot be cancelled", func(t *testing.T) {
		running, err := f.svc.Loans.BorrowNow(ctx, "user-3", eqID, 1, ptr(1))
		require.NoError(t, err)

		_, err = f.svc.Loans.Cancel(ctx, running.ID, "admin-1", true)
		assert.ErrorIs(t, err, lending.ErrInvalidState)
	})
}

func Test_AvailabilityFlag_FollowsWrites(t *testing.T) {
	f := newFixture(t)
	eqID := f.equipment(1)
	ctx := t.Context()

	l, err := f.svc.Loans.BorrowNow(ctx, "user-1", eqID, 1, nil)
	require.NoError(t, err)
	eq, err := f.svc.Equipment(ctx, eqID)
	require.NoError(t, err)
	assert.False(t, eq.Available)
	assert.Equal(t, 0, eq.AvailableUnits)

	_, err = f.svc.Loans.MarkReturned(ctx, l.ID, "user-1", false)
	require.NoError(t, err)
	eq, err = f.svc.Equipment(ctx, eqID)
	require.NoError(t, err)
	assert.True(t, eq.Available)
	assert.Equal(t, 1, eq.AvailableUnits)
}
