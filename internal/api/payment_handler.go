package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/service"
)

// PaymentHandler exposes checkout, confirmation and payment history.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateIntentRequest starts a checkout for one course.
type CreateIntentRequest struct {
	CourseID string `json:"courseId" binding:"required"`
}

// ConfirmRequest finalizes a pending payment using the gateway reference
// returned to the client.
type ConfirmRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
}

// PaymentResponse is the DTO for a payment record.
type PaymentResponse struct {
	ID            string    `json:"id"`
	CourseID      string    `json:"courseId"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Method        string    `json:"method"`
	TransactionID string    `json:"transactionId,omitempty"`
	RefundReason  string    `json:"refundReason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// MapPaymentToResponse converts a domain payment to its API representation.
func MapPaymentToResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID.Hex(),
		CourseID:      p.CourseID.Hex(),
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		Method:        string(p.PaymentMethod),
		TransactionID: p.TransactionID,
		RefundReason:  p.RefundReason,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// CreateIntent opens a pending payment and returns the gateway token the
// client needs to complete checkout.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	courseID, err := primitive.ObjectIDFromHex(req.CourseID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	intent, err := h.paymentService.CreateIntent(c.Request.Context(), userID, courseID)
	if err != nil {
		h.mapPaymentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, intent)
}

// Confirm verifies a pending payment with the gateway. On success the
// payment turns completed and the client can enroll. Safe to call more
// than once.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	paymentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid payment ID format.")
		return
	}

	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	payment, err := h.paymentService.Confirm(c.Request.Context(), userID, paymentID, req.TransactionID)
	if err != nil {
		h.mapPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapPaymentToResponse(payment))
}

// EnrollFree records a zero-amount payment and enrolls the user in a free
// course in one call.
func (h *PaymentHandler) EnrollFree(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	courseID, err := primitive.ObjectIDFromHex(req.CourseID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	payment, err := h.paymentService.EnrollFree(c.Request.Context(), userID, courseID)
	if err != nil {
		h.mapPaymentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapPaymentToResponse(payment))
}

// MockPurchase completes a paid-course purchase without a real gateway.
// Intended for development and staging environments.
func (h *PaymentHandler) MockPurchase(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	courseID, err := primitive.ObjectIDFromHex(req.CourseID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	payment, err := h.paymentService.MockPurchase(c.Request.Context(), userID, courseID)
	if err != nil {
		h.mapPaymentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapPaymentToResponse(payment))
}

// GetPayment returns one payment; only the payer or an admin may read it.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid payment ID format.")
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}
	role, err := getUserRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user role from token.")
		return
	}

	payment, err := h.paymentService.GetPayment(c.Request.Context(), userID, role, paymentID)
	if err != nil {
		h.mapPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapPaymentToResponse(payment))
}

// GetMyPayments lists the authenticated user's payment history.
func (h *PaymentHandler) GetMyPayments(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	payments, err := h.paymentService.GetUserPayments(c.Request.Context(), userID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list payments.")
		return
	}

	resp := make([]PaymentResponse, len(payments))
	for i := range payments {
		resp[i] = MapPaymentToResponse(&payments[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) mapPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound), errors.Is(err, service.ErrPaymentNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotPaymentOwner):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrCourseNotAvailable),
		errors.Is(err, service.ErrFreeCourse),
		errors.Is(err, service.ErrPaidCourse):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAlreadyEnrolled):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPaymentFinalized):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrPaymentDeclined):
		abortWithError(c, http.StatusPaymentRequired, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Payment operation failed.")
	}
}
