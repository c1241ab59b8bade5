package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"saumya185/course-platform/internal/domain"
)

// mockGateway is the demo-mode gateway used when no real provider is
// configured. Every intent it issues verifies successfully; references
// carrying the "fail_" prefix verify as failed, which tests and demo
// frontends use to exercise the failure path.
type mockGateway struct{}

// NewMockGateway returns the demo-mode PaymentGateway.
func NewMockGateway() PaymentGateway {
	return &mockGateway{}
}

func (g *mockGateway) CreateIntent(ctx context.Context, payment *domain.Payment) (*Intent, error) {
	orderID := fmt.Sprintf("mock_%s", uuid.NewString())
	return &Intent{
		OrderID:     orderID,
		ClientToken: "mock_client_token_" + payment.ID.Hex(),
	}, nil
}

func (g *mockGateway) VerifyTransaction(ctx context.Context, reference string) (VerificationStatus, error) {
	if strings.HasPrefix(reference, "fail_") {
		return VerificationFailed, nil
	}
	return VerificationSucceeded, nil
}
