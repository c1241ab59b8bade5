package gateway

import (
	"context"

	"saumya185/course-platform/internal/domain"
)

// VerificationStatus is the gateway's verdict on an external transaction
// reference.
type VerificationStatus string

const (
	VerificationSucceeded VerificationStatus = "succeeded"
	VerificationPending   VerificationStatus = "pending"
	VerificationFailed    VerificationStatus = "failed"
)

// Intent is the opaque client handle returned at intent-creation time. The
// client completes the transaction out of process and reports the reference
// back on confirm.
type Intent struct {
	// OrderID identifies the transaction on the gateway side; it is also
	// stored on the payment record.
	OrderID string
	// ClientToken is what the frontend hands to the gateway's checkout flow.
	ClientToken string
	// RedirectURL is set by hosted-checkout gateways, empty otherwise.
	RedirectURL string
}

// PaymentGateway abstracts the external payment collaborator. The payment
// service only ever creates intents and verifies references through it; all
// state transitions stay on our side.
type PaymentGateway interface {
	// CreateIntent registers the pending payment with the gateway and
	// returns the opaque handle for out-of-process confirmation.
	CreateIntent(ctx context.Context, payment *domain.Payment) (*Intent, error)
	// VerifyTransaction checks an external reference and reports whether the
	// money actually moved.
	VerifyTransaction(ctx context.Context, reference string) (VerificationStatus, error)
}
