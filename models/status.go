package models

import (
	"errors"
	"fmt"
)

var ErrIllegalTransition = errors.New("illegal status transition")

type BookingStatus string

const (
	BookingPending  BookingStatus = "PENDING"
	BookingApproved BookingStatus = "APPROVED"
	BookingRejected BookingStatus = "REJECTED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool { return s == BookingApproved || s == BookingRejected }

// TransitionTo only allows PENDING -> APPROVED | REJECTED.
func (s BookingStatus) TransitionTo(next BookingStatus) (BookingStatus, error) {
	if s == BookingPending && (next == BookingApproved || next == BookingRejected) {
		return next, nil
	}
	return s, fmt.Errorf("%w: booking %s -> %s", ErrIllegalTransition, s, next)
}

type LoanStatus string

const (
	LoanBorrowed  LoanStatus = "BORROWED"
	LoanReturned  LoanStatus = "RETURNED"
	LoanOverdue   LoanStatus = "OVERDUE"
	LoanCancelled LoanStatus = "CANCELLED"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanBorrowed, LoanReturned, LoanOverdue, LoanCancelled:
		return true
	}
	return false
}

// Active 的借用才占库存
func (s LoanStatus) Active() bool { return s == LoanBorrowed }

// TransitionTo only allows BORROWED -> RETURNED | OVERDUE | CANCELLED.
func (s LoanStatus) TransitionTo(next LoanStatus) (LoanStatus, error) {
	if s == LoanBorrowed && (next == LoanReturned || next == LoanOverdue || next == LoanCancelled) {
		return next, nil
	}
	return s, fmt.Errorf("%w: loan %s -> %s", ErrIllegalTransition, s, next)
}
