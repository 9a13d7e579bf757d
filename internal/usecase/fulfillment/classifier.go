package fulfillment

import (
	"errors"
	"time"

	"github.com/thehieu03/Group3-SWP391-sub003/internal/domain"
)

type FailureClass int

const (
	Retryable FailureClass = iota
	Terminal
)

func (c FailureClass) String() string {
	if c == Terminal {
		return "terminal"
	}
	return "retryable"
}

// Classify maps a processing error to a retry decision. Business rule
// violations and an exhausted retry budget are final outcomes; everything
// else, including version conflicts and dependency failures, is assumed
// transient. Attempt bounding happens in the consumer, not here.
func Classify(err error) FailureClass {
	var ruleErr *domain.BusinessRuleError
	switch {
	case errors.As(err, &ruleErr):
		return Terminal
	case errors.Is(err, domain.ErrRetryBudgetExhausted):
		return Terminal
	}
	return Retryable
}

// BackoffPolicy produces exponential requeue delays: Base doubled per attempt,
// capped at Cap.
type BackoffPolicy struct {
	Base time.Duration
	Cap  time.Duration
}

func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.Cap {
			return p.Cap
		}
	}
	if delay > p.Cap {
		return p.Cap
	}
	return delay
}
