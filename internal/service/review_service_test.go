package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
)

type reviewFixture struct {
	reviews     *memReviewRepo
	courses     *memCourseRepo
	enrollments *memEnrollmentRepo
	svc         ReviewService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		reviews:     newMemReviewRepo(),
		courses:     newMemCourseRepo(),
		enrollments: newMemEnrollmentRepo(),
	}
	f.svc = NewReviewService(f.reviews, f.courses, f.enrollments)
	return f
}

func (f *reviewFixture) addCourse(t *testing.T) *domain.Course {
	t.Helper()
	course := &domain.Course{
		Title:        "Course",
		Description:  "desc",
		Category:     "dev",
		Status:       domain.CoursePublished,
		InstructorID: primitive.NewObjectID(),
	}
	_, err := f.courses.Create(context.Background(), course)
	require.NoError(t, err)
	return course
}

func (f *reviewFixture) enroll(t *testing.T, userID, courseID primitive.ObjectID) {
	t.Helper()
	_, err := f.enrollments.Create(context.Background(), &domain.Enrollment{UserID: userID, CourseID: courseID})
	require.NoError(t, err)
}

func (f *reviewFixture) courseRating(t *testing.T, courseID primitive.ObjectID) (float64, int) {
	t.Helper()
	course, err := f.courses.GetByID(context.Background(), courseID)
	require.NoError(t, err)
	return course.AverageRating, course.TotalRatings
}

func TestSubmitReview_RecomputesRating(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	course := f.addCourse(t)

	for _, rating := range []int{5, 4, 4} {
		userID := primitive.NewObjectID()
		f.enroll(t, userID, course.ID)
		_, err := f.svc.SubmitReview(ctx, userID, course.ID, rating, "good")
		require.NoError(t, err)
	}

	avg, total := f.courseRating(t, course.ID)
	assert.Equal(t, 4.3, avg, "mean of 5,4,4 rounded to one decimal")
	assert.Equal(t, 3, total)
}

func TestSubmitReview_RequiresEnrollment(t *testing.T) {
	f := newReviewFixture()
	course := f.addCourse(t)

	_, err := f.svc.SubmitReview(context.Background(), primitive.NewObjectID(), course.ID, 5, "")
	assert.ErrorIs(t, err, ErrMustBeEnrolled)
}

func TestSubmitReview_InvalidRating(t *testing.T) {
	f := newReviewFixture()
	course := f.addCourse(t)
	userID := primitive.NewObjectID()
	f.enroll(t, userID, course.ID)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.svc.SubmitReview(context.Background(), userID, course.ID, rating, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
}

func TestSubmitReview_SecondSubmitReplaces(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	course := f.addCourse(t)
	userID := primitive.NewObjectID()
	f.enroll(t, userID, course.ID)

	first, err := f.svc.SubmitReview(ctx, userID, course.ID, 2, "meh")
	require.NoError(t, err)

	second, err := f.svc.SubmitReview(ctx, userID, course.ID, 5, "grew on me")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "one review per user per course")

	all, err := f.svc.GetCourseReviews(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 5, all[0].Rating)

	avg, total := f.courseRating(t, course.ID)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, total)
}

func TestUpdateReview(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	course := f.addCourse(t)
	owner := primitive.NewObjectID()
	f.enroll(t, owner, course.ID)

	review, err := f.svc.SubmitReview(ctx, owner, course.ID, 3, "")
	require.NoError(t, err)

	_, err = f.svc.UpdateReview(ctx, primitive.NewObjectID(), review.ID, 1, "")
	assert.ErrorIs(t, err, ErrNotReviewOwner)

	updated, err := f.svc.UpdateReview(ctx, owner, review.ID, 4, "better")
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Rating)

	avg, _ := f.courseRating(t, course.ID)
	assert.Equal(t, 4.0, avg)
}

func TestDeleteReview_RecomputesRating(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	course := f.addCourse(t)

	owner := primitive.NewObjectID()
	f.enroll(t, owner, course.ID)
	review, err := f.svc.SubmitReview(ctx, owner, course.ID, 2, "")
	require.NoError(t, err)

	other := primitive.NewObjectID()
	f.enroll(t, other, course.ID)
	_, err = f.svc.SubmitReview(ctx, other, course.ID, 5, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteReview(ctx, owner, domain.RoleStudent, review.ID))

	avg, total := f.courseRating(t, course.ID)
	assert.Equal(t, 5.0, avg)
	assert.Equal(t, 1, total)
}

func TestDeleteReview_LastReviewZeroesRating(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	course := f.addCourse(t)
	owner := primitive.NewObjectID()
	f.enroll(t, owner, course.ID)

	review, err := f.svc.SubmitReview(ctx, owner, course.ID, 4, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteReview(ctx, owner, domain.RoleStudent, review.ID))

	avg, total := f.courseRating(t, course.ID)
	assert.Equal(t, 0.0, avg, "empty review set resets the average, never NaN")
	assert.Equal(t, 0, total)
}

func TestDeleteReview_AdminOverride(t *testing.T) {
	f := newReviewFixture()
	ctx := context.Background()
	course := f.addCourse(t)
	owner := primitive.NewObjectID()
	f.enroll(t, owner, course.ID)

	review, err := f.svc.SubmitReview(ctx, owner, course.ID, 1, "spam")
	require.NoError(t, err)

	admin := primitive.NewObjectID()
	err = f.svc.DeleteReview(ctx, admin, domain.RoleStudent, review.ID)
	assert.ErrorIs(t, err, ErrNotReviewOwner)

	require.NoError(t, f.svc.DeleteReview(ctx, admin, domain.RoleAdmin, review.ID))

	err = f.svc.DeleteReview(ctx, admin, domain.RoleAdmin, review.ID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestAverageRating_Rounding(t *testing.T) {
	assert.Equal(t, 0.0, domain.AverageRating(nil))
	assert.Equal(t, 3.0, domain.AverageRating([]int{3}))
	assert.Equal(t, 4.3, domain.AverageRating([]int{5, 4, 4}))
	assert.Equal(t, 4.7, domain.AverageRating([]int{5, 5, 4}))
	assert.Equal(t, 3.5, domain.AverageRating([]int{3, 4}))
}
