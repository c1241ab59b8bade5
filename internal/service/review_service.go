package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/repository"
)

// --- Error Definitions ---
var (
	ErrReviewNotFound = errors.New("review not found")
	ErrNotReviewOwner = errors.New("review does not belong to this user")
	ErrInvalidRating  = errors.New("rating must be between 1 and 5")
	ErrMustBeEnrolled = errors.New("must be enrolled to review this course")
)

// ReviewService owns review CRUD and is the single writer of the course's
// derived rating aggregates: every mutation ends with a full recompute from
// the current review set.
type ReviewService interface {
	SubmitReview(ctx context.Context, userID, courseID primitive.ObjectID, rating int, comment string) (*domain.Review, error)
	UpdateReview(ctx context.Context, callerID, reviewID primitive.ObjectID, rating int, comment string) (*domain.Review, error)
	DeleteReview(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, reviewID primitive.ObjectID) error
	GetCourseReviews(ctx context.Context, courseID primitive.ObjectID) ([]domain.Review, error)
}

// --- Service Implementation ---

type reviewService struct {
	reviewRepo     repository.ReviewRepository
	courseRepo     repository.CourseRepository
	enrollmentRepo repository.EnrollmentRepository
}

// NewReviewService creates a new instance of reviewService.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	courseRepo repository.CourseRepository,
	enrollmentRepo repository.EnrollmentRepository,
) ReviewService {
	return &reviewService{
		reviewRepo:     reviewRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

// SubmitReview creates the caller's review for a course, or updates it when
// one already exists (one review per user per course).
func (s *reviewService) SubmitReview(ctx context.Context, userID, courseID primitive.ObjectID, rating int, comment string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, ErrMustBeEnrolled
	}

	review, err := s.reviewRepo.GetByUserAndCourse(ctx, userID, courseID)
	switch {
	case err == nil:
		review.Rating = rating
		review.Comment = comment
		if err := s.reviewRepo.Update(ctx, review); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		review = &domain.Review{
			UserID:   userID,
			CourseID: courseID,
			Rating:   rating,
			Comment:  comment,
		}
		reviewID, err := s.reviewRepo.Create(ctx, review)
		if err != nil {
			// A concurrent submit from the same user can win the unique
			// index race; fall back to updating that record.
			if errors.Is(err, repository.ErrDuplicate) {
				existing, gerr := s.reviewRepo.GetByUserAndCourse(ctx, userID, courseID)
				if gerr != nil {
					return nil, gerr
				}
				existing.Rating = rating
				existing.Comment = comment
				if uerr := s.reviewRepo.Update(ctx, existing); uerr != nil {
					return nil, uerr
				}
				review = existing
			} else {
				return nil, err
			}
		} else {
			review.ID = reviewID
		}
	default:
		return nil, err
	}

	if err := s.recomputeRating(ctx, courseID); err != nil {
		return nil, err
	}
	return review, nil
}

// UpdateReview modifies the caller's own review.
func (s *reviewService) UpdateReview(ctx context.Context, callerID, reviewID primitive.ObjectID, rating int, comment string) (*domain.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}

	if review.UserID != callerID {
		return nil, ErrNotReviewOwner
	}

	review.Rating = rating
	review.Comment = comment
	if err := s.reviewRepo.Update(ctx, review); err != nil {
		return nil, err
	}

	if err := s.recomputeRating(ctx, review.CourseID); err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReview removes a review; allowed for its owner or an admin.
func (s *reviewService) DeleteReview(ctx context.Context, callerID primitive.ObjectID, callerRole domain.Role, reviewID primitive.ObjectID) error {
	review, err := s.reviewRepo.GetByID(ctx, reviewID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrReviewNotFound
		}
		return err
	}

	if review.UserID != callerID && callerRole != domain.RoleAdmin {
		return ErrNotReviewOwner
	}

	if err := s.reviewRepo.Delete(ctx, reviewID); err != nil {
		return err
	}

	return s.recomputeRating(ctx, review.CourseID)
}

// GetCourseReviews returns all reviews for a course.
func (s *reviewService) GetCourseReviews(ctx context.Context, courseID primitive.ObjectID) ([]domain.Review, error) {
	return s.reviewRepo.GetByCourseID(ctx, courseID)
}

// recomputeRating refreshes the course's derived rating aggregates from the
// full current review set. It is a pure function of the underlying facts,
// never an incremental delta, so re-running it any number of times cannot
// drift from reality.
func (s *reviewService) recomputeRating(ctx context.Context, courseID primitive.ObjectID) error {
	reviews, err := s.reviewRepo.GetByCourseID(ctx, courseID)
	if err != nil {
		return err
	}

	ratings := make([]int, len(reviews))
	for i, r := range reviews {
		ratings[i] = r.Rating
	}

	return s.courseRepo.SetRatingStats(ctx, courseID, domain.AverageRating(ratings), len(reviews))
}
