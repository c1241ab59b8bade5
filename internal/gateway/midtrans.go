package gateway

import (
	"context"
	"errors"
	"fmt"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"

	"saumya185/course-platform/internal/domain"
)

// midtransGateway implements PaymentGateway on top of Midtrans: Snap for
// hosted checkout tokens, Core API for transaction status checks.
type midtransGateway struct {
	snapClient snap.Client
	coreClient coreapi.Client
}

// NewMidtransGateway configures a Midtrans-backed PaymentGateway.
// production=false targets the sandbox environment.
func NewMidtransGateway(serverKey string, production bool) (PaymentGateway, error) {
	if serverKey == "" {
		return nil, errors.New("midtrans server key is required")
	}

	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	g := &midtransGateway{}
	g.snapClient.New(serverKey, env)
	g.coreClient.New(serverKey, env)
	return g, nil
}

func (g *midtransGateway) CreateIntent(ctx context.Context, payment *domain.Payment) (*Intent, error) {
	if payment.Amount <= 0 {
		return nil, errors.New("payment amount must be positive")
	}

	// The payment record's hex ID doubles as the gateway order ID, so status
	// checks need no extra mapping table.
	orderID := fmt.Sprintf("course_%s", payment.ID.Hex())

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: int64(payment.Amount),
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       payment.CourseID.Hex(),
				Price:    int64(payment.Amount),
				Qty:      1,
				Name:     "Course enrollment",
				Category: "course",
			},
		},
	}

	resp, err := g.snapClient.CreateTransaction(req)
	if err != nil {
		return nil, err
	}

	return &Intent{
		OrderID:     orderID,
		ClientToken: resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

func (g *midtransGateway) VerifyTransaction(ctx context.Context, reference string) (VerificationStatus, error) {
	resp, err := g.coreClient.CheckTransaction(reference)
	if err != nil {
		return VerificationFailed, err
	}

	switch resp.TransactionStatus {
	case "capture", "settlement":
		return VerificationSucceeded, nil
	case "pending":
		return VerificationPending, nil
	default: // deny, cancel, expire, refund
		return VerificationFailed, nil
	}
}
