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

// ReviewHandler exposes course ratings and comments.
type ReviewHandler struct {
	reviewService service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// ReviewRequest defines the expected JSON for submitting or editing a review.
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// ReviewResponse is the DTO for a review.
type ReviewResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CourseID  string    `json:"courseId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MapReviewToResponse converts a domain review to its API representation.
func MapReviewToResponse(r *domain.Review) ReviewResponse {
	return ReviewResponse{
		ID:        r.ID.Hex(),
		UserID:    r.UserID.Hex(),
		CourseID:  r.CourseID.Hex(),
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// SubmitReview creates the caller's review for a course, or replaces the
// one they already wrote.
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	review, err := h.reviewService.SubmitReview(c.Request.Context(), userID, courseID, req.Rating, req.Comment)
	if err != nil {
		h.mapReviewError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MapReviewToResponse(review))
}

// UpdateReview edits a review the caller owns.
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	reviewID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid review ID format.")
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), userID, reviewID, req.Rating, req.Comment)
	if err != nil {
		h.mapReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, MapReviewToResponse(review))
}

// DeleteReview removes a review; only its author or an admin may do so.
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	reviewID, err := primitive.ObjectIDFromHex(c.Param("reviewId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid review ID format.")
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

	if err := h.reviewService.DeleteReview(c.Request.Context(), userID, role, reviewID); err != nil {
		h.mapReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}

// GetCourseReviews lists all reviews for one course. Public.
func (h *ReviewHandler) GetCourseReviews(c *gin.Context) {
	courseID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid course ID format.")
		return
	}

	reviews, err := h.reviewService.GetCourseReviews(c.Request.Context(), courseID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list reviews.")
		return
	}

	resp := make([]ReviewResponse, len(reviews))
	for i := range reviews {
		resp[i] = MapReviewToResponse(&reviews[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ReviewHandler) mapReviewError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrReviewNotFound), errors.Is(err, service.ErrCourseNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotReviewOwner):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrMustBeEnrolled):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidRating):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "Review operation failed.")
	}
}
