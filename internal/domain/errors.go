package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition 	= errors.New("invalid order status transition")
	ErrAlreadyInFlight 		= errors.New("order is already being processed")
	ErrOrderTerminal 		= errors.New("order already reached a terminal status")
	ErrOrderNotFound 		= errors.New("order not found")
	ErrVersionConflict 		= errors.New("order version conflict")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)

// BusinessRuleError marks a final business decision that must never be retried.
type BusinessRuleError struct {
	Rule   string
	Reason string
}

func NewBusinessRuleError(rule, reason string) *BusinessRuleError {
	return &BusinessRuleError{Rule: rule, Reason: reason}
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("business rule %s violated: %s", e.Rule, e.Reason)
}

func IsBusinessRuleError(err error) bool {
	var bre *BusinessRuleError
	return errors.As(err, &bre)
}
