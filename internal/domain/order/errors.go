package order

import (
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors for order operations.
var (
	ErrEmptyOrder    = fmt.Errorf("order has no items")
	ErrNotFound      = fmt.Errorf("order not found")
	ErrInvalidStatus = fmt.Errorf("invalid order status")
	// ErrIllegalTransition is matched by every *TransitionError.
	ErrIllegalTransition = fmt.Errorf("illegal status transition")
	// ErrOperationNotFound is reported by Inventory when the atomic stock
	// decrement is not available in the data layer.
	ErrOperationNotFound = fmt.Errorf("stock operation not found")
)

// ValidationError lists customer fields that failed validation, keyed by
// field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid customer data: " + strings.Join(parts, "; ")
}

// TransitionError indicates a status change the order lifecycle forbids.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// Step identifies the persistence step of a submission.
type Step string

// Submission steps, in execution order.
const (
	StepHeader Step = "header"
	StepLines  Step = "lines"
	StepStock  Step = "stock"
)

// SubmissionError reports the step at which an order submission stopped.
// Steps completed before the failure stay committed unless Compensated is
// set.
type SubmissionError struct {
	Step Step
	// OrderID is set once the header has been created.
	OrderID string
	// ProductID is set for stock failures.
	ProductID string
	// Compensated reports that earlier steps were rolled back.
	Compensated bool
	// CompensationErr holds failures hit while rolling back.
	CompensationErr error
	Err             error
}

func (e *SubmissionError) Error() string {
	switch e.Step {
	case StepHeader:
		return fmt.Sprintf("create order header: %v", e.Err)
	case StepLines:
		return fmt.Sprintf("insert lines of order %s: %v", e.OrderID, e.Err)
	default:
		return fmt.Sprintf("update stock of product %s for order %s: %v", e.ProductID, e.OrderID, e.Err)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Recorded reports whether the order header remains persisted.
func (e *SubmissionError) Recorded() bool {
	return e.Step != StepHeader && !e.Compensated
}

// UserMessage returns the feedback shown to the customer.
func (e *SubmissionError) UserMessage() string {
	if !e.Recorded() {
		return "We could not register your order. Please try again."
	}
	if e.Step == StepLines {
		return "Your order was registered without its items. Please contact us to confirm it."
	}
	return "Your order was registered but the stock update failed. We will confirm availability."
}
