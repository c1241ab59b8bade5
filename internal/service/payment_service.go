package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/gateway"
	"saumya185/course-platform/internal/repository"
)

// --- Error Definitions ---
var (
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrNotPaymentOwner  = errors.New("payment does not belong to this user")
	ErrFreeCourse       = errors.New("this course is free")
	ErrPaidCourse       = errors.New("this course requires payment")
	ErrPaymentFinalized = errors.New("payment is in a terminal status")
	ErrPaymentDeclined  = errors.New("payment was not successful")
)

// IntentResponse is what the client needs to complete a purchase out of
// process.
type IntentResponse struct {
	PaymentID   string `json:"paymentId"`
	OrderID     string `json:"orderId"`
	ClientToken string `json:"clientToken"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// PaymentService owns the payment record lifecycle:
//
//	pending -> completed | failed, completed -> refunded.
//
// A completed payment for a (user, course) pair is the precondition the
// enrollment ledger checks for paid courses.
type PaymentService interface {
	CreateIntent(ctx context.Context, userID, courseID primitive.ObjectID) (*IntentResponse, error)
	Confirm(ctx context.Context, callerID, paymentID primitive.ObjectID, externalRef string) (*domain.Payment, error)
	EnrollFree(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Payment, error)
	MockPurchase(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Payment, error)
	RefundForCourse(ctx context.Context, courseID primitive.ObjectID, reason string) (int64, error)
	GetPayment(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, paymentID primitive.ObjectID) (*domain.Payment, error)
	GetUserPayments(ctx context.Context, userID primitive.ObjectID) ([]domain.Payment, error)
}

// --- Service Implementation ---

type paymentService struct {
	paymentRepo       repository.PaymentRepository
	courseRepo        repository.CourseRepository
	enrollmentRepo    repository.EnrollmentRepository
	enrollmentService EnrollmentService
	gateway           gateway.PaymentGateway
	currency          string
}

// NewPaymentService creates a new instance of paymentService.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
	enrollmentService EnrollmentService,
	gw gateway.PaymentGateway,
	currency string,
) PaymentService {
	if currency == "" {
		currency = "USD"
	}
	return &paymentService{
		paymentRepo:       paymentRepo,
		courseRepo:        courseRepo,
		enrollmentRepo:    enrollmentRepo,
		enrollmentService: enrollmentService,
		gateway:           gw,
		currency:          currency,
	}
}

// CreateIntent creates a pending payment for the discounted price and
// registers it with the gateway, returning the opaque client handle.
func (s *paymentService) CreateIntent(ctx context.Context, userID, courseID primitive.ObjectID) (*IntentResponse, error) {
	course, err := s.lookupCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	if course.IsFree() {
		return nil, ErrFreeCourse
	}

	payment := &domain.Payment{
		UserID:        userID,
		CourseID:      courseID,
		Amount:        course.EffectivePrice(),
		Currency:      s.currency,
		Status:        domain.PaymentPending,
		PaymentMethod: domain.MethodMidtrans,
	}
	paymentID, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.ID = paymentID

	intent, err := s.gateway.CreateIntent(ctx, payment)
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SetGatewayOrderID(ctx, paymentID, intent.OrderID); err != nil {
		return nil, err
	}

	return &IntentResponse{
		PaymentID:   paymentID.Hex(),
		OrderID:     intent.OrderID,
		ClientToken: intent.ClientToken,
		RedirectURL: intent.RedirectURL,
	}, nil
}

// Confirm settles a pending payment against the gateway's verdict on the
// external reference. Confirming an already-completed payment is a no-op
// that returns the existing record; failed and refunded are terminal.
func (s *paymentService) Confirm(ctx context.Context, callerID, paymentID primitive.ObjectID, externalRef string) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if payment.UserID != callerID {
		return nil, ErrNotPaymentOwner
	}

	switch payment.Status {
	case domain.PaymentCompleted:
		return payment, nil // idempotent
	case domain.PaymentFailed, domain.PaymentRefunded:
		return nil, ErrPaymentFinalized
	}

	if externalRef == "" {
		externalRef = payment.GatewayOrderID
	}

	status, err := s.gateway.VerifyTransaction(ctx, externalRef)
	if err != nil {
		return nil, err
	}

	switch status {
	case gateway.VerificationSucceeded:
		if err := s.paymentRepo.SetStatus(ctx, paymentID, domain.PaymentCompleted, externalRef); err != nil {
			return nil, err
		}
		payment.Status = domain.PaymentCompleted
		payment.TransactionID = externalRef
		return payment, nil
	case gateway.VerificationPending:
		return payment, nil // not settled yet; stays pending
	default:
		if err := s.paymentRepo.SetStatus(ctx, paymentID, domain.PaymentFailed, externalRef); err != nil {
			return nil, err
		}
		return nil, ErrPaymentDeclined
	}
}

// EnrollFree records a zero-amount completed payment for a free course and
// enrolls the user. Enrollment on a free course carries no payment
// precondition; the record only keeps the purchase history complete.
func (s *paymentService) EnrollFree(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Payment, error) {
	course, err := s.lookupCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	if !course.IsFree() {
		return nil, ErrPaidCourse
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	payment := &domain.Payment{
		UserID:        userID,
		CourseID:      courseID,
		Amount:        0,
		Currency:      s.currency,
		Status:        domain.PaymentCompleted,
		PaymentMethod: domain.MethodFree,
		TransactionID: fmt.Sprintf("free_%d", time.Now().UnixMilli()),
	}
	paymentID, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.ID = paymentID

	if _, err := s.enrollmentService.Enroll(ctx, userID, courseID); err != nil {
		return nil, err
	}

	return payment, nil
}

// MockPurchase is the demo path for paid courses: a completed mock payment
// followed by the enrollment, in one call.
func (s *paymentService) MockPurchase(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Payment, error) {
	course, err := s.lookupCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	payment := &domain.Payment{
		UserID:        userID,
		CourseID:      courseID,
		Amount:        course.EffectivePrice(),
		Currency:      s.currency,
		Status:        domain.PaymentCompleted,
		PaymentMethod: domain.MethodMock,
		TransactionID: "mock_" + uuid.NewString(),
	}
	paymentID, err := s.paymentRepo.Create(ctx, payment)
	if err != nil {
		return nil, err
	}
	payment.ID = paymentID

	if _, err := s.enrollmentService.Enroll(ctx, userID, courseID); err != nil {
		// The completed payment satisfies the precondition; a plain enroll
		// retry converges.
		return nil, err
	}

	return payment, nil
}

// RefundForCourse bulk-transitions all completed payments for a deleted
// course to refunded. It never reverses enrollment.
func (s *paymentService) RefundForCourse(ctx context.Context, courseID primitive.ObjectID, reason string) (int64, error) {
	if reason == "" {
		return 0, errors.New("refund reason is required")
	}
	return s.paymentRepo.RefundCompletedByCourse(ctx, courseID, reason)
}

// GetPayment retrieves a payment visible to its owner or an admin.
func (s *paymentService) GetPayment(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, paymentID primitive.ObjectID) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}

	if payment.UserID != callerID && callerRole != domain.RoleAdmin {
		return nil, ErrNotPaymentOwner
	}
	return payment, nil
}

// GetUserPayments returns the caller's payment history.
func (s *paymentService) GetUserPayments(ctx context.Context, userID primitive.ObjectID) ([]domain.Payment, error) {
	return s.paymentRepo.GetByUserID(ctx, userID)
}

func (s *paymentService) lookupCourse(ctx context.Context, courseID primitive.ObjectID) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}
	return course, nil
}
