package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the payment state machine:
//
//	pending -> completed | failed
//	completed -> refunded (administrative reversal only)
//
// failed and refunded are terminal.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// PaymentMethod identifies which path produced the payment record.
type PaymentMethod string

const (
	MethodMidtrans PaymentMethod = "midtrans"
	MethodFree     PaymentMethod = "free"
	MethodMock     PaymentMethod = "mock"
)

// Payment is one record per purchase attempt.
type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId" json:"userId"`
	CourseID      primitive.ObjectID `bson:"courseId" json:"courseId"`
	Amount        float64            `bson:"amount" json:"amount"`
	Currency      string             `bson:"currency" json:"currency"`
	Status        PaymentStatus      `bson:"status" json:"status"`
	PaymentMethod PaymentMethod      `bson:"paymentMethod" json:"paymentMethod"`

	// TransactionID is the external reference recorded when the payment
	// completed. GatewayOrderID is the opaque handle handed to the client at
	// intent-creation time for out-of-process confirmation.
	TransactionID  string `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	GatewayOrderID string `bson:"gatewayOrderId,omitempty" json:"gatewayOrderId,omitempty"`

	RefundReason string `bson:"refundReason,omitempty" json:"refundReason,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IsTerminal reports whether no further transition is allowed, except the
// documented completed -> refunded reversal.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentFailed || p.Status == PaymentRefunded
}
