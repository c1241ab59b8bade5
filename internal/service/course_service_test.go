package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
)

type courseFixture struct {
	*paymentFixture
	reviews      *memReviewRepo
	svc          CourseService
	instructorID primitive.ObjectID
}

func newCourseFixture() *courseFixture {
	f := &courseFixture{
		paymentFixture: newPaymentFixture(),
		reviews:        newMemReviewRepo(),
		instructorID:   primitive.NewObjectID(),
	}
	f.svc = NewCourseService(f.courses, f.reviews, f.paymentFixture.svc)
	return f
}

func (f *courseFixture) createCourse(t *testing.T, price float64) *domain.Course {
	t.Helper()
	course, err := f.svc.CreateCourse(context.Background(), f.instructorID, CourseInput{
		Title:       "Go from Scratch",
		Description: "desc",
		Category:    "programming",
		Price:       price,
	})
	require.NoError(t, err)
	return course
}

func (f *courseFixture) addLecture(t *testing.T, courseID primitive.ObjectID, duration int) *domain.Course {
	t.Helper()
	course, err := f.svc.AddLecture(context.Background(), f.instructorID, courseID, LectureInput{
		Title:    "Lecture",
		VideoURL: "https://cdn.example.com/v.mp4",
		Duration: duration,
	})
	require.NoError(t, err)
	return course
}

func TestCreateCourse_Defaults(t *testing.T) {
	f := newCourseFixture()
	course := f.createCourse(t, 10)

	assert.Equal(t, domain.CourseDraft, course.Status, "new courses start as drafts")
	assert.Equal(t, domain.LevelBeginner, course.Level)
	assert.Equal(t, "English", course.Language)
	assert.Equal(t, f.instructorID, course.InstructorID)
	assert.False(t, course.ID.IsZero())
}

func TestCreateCourse_Validation(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()

	_, err := f.svc.CreateCourse(ctx, f.instructorID, CourseInput{Description: "d", Category: "c"})
	assert.Error(t, err)

	_, err = f.svc.CreateCourse(ctx, f.instructorID, CourseInput{Title: "t", Description: "d", Category: "c", Price: -1})
	assert.Error(t, err)
}

func TestUpdateCourse_OwnershipAndDerivedFields(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	course := f.createCourse(t, 10)

	_, err := f.svc.UpdateCourse(ctx, primitive.NewObjectID(), course.ID, CourseInput{Title: "Hijacked", Description: "d", Category: "c"})
	assert.ErrorIs(t, err, ErrNotCourseOwner)

	// Pre-existing derived state must survive a catalog update.
	require.NoError(t, f.courses.IncrementEnrollmentCount(ctx, course.ID, 7))
	require.NoError(t, f.courses.SetRatingStats(ctx, course.ID, 4.5, 12))

	_, err = f.svc.UpdateCourse(ctx, f.instructorID, course.ID, CourseInput{
		Title:       "Go from Scratch, 2nd ed.",
		Description: "desc",
		Category:    "programming",
		Price:       15,
	})
	require.NoError(t, err)

	stored, err := f.courses.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Go from Scratch, 2nd ed.", stored.Title)
	assert.Equal(t, 7, stored.EnrollmentCount)
	assert.Equal(t, 4.5, stored.AverageRating)
	assert.Equal(t, 12, stored.TotalRatings)
}

func TestPublishCourse(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	course := f.createCourse(t, 10)

	_, err := f.svc.PublishCourse(ctx, f.instructorID, course.ID)
	assert.Error(t, err, "a course without lectures cannot be published")

	f.addLecture(t, course.ID, 600)

	published, err := f.svc.PublishCourse(ctx, f.instructorID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CoursePublished, published.Status)
}

func TestGetCourse_RedactsPaidVideos(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	course := f.createCourse(t, 25)
	f.addLecture(t, course.ID, 600)
	_, err := f.svc.AddLecture(ctx, f.instructorID, course.ID, LectureInput{
		Title:    "Preview",
		VideoURL: "https://cdn.example.com/preview.mp4",
		Duration: 120,
		IsFree:   true,
	})
	require.NoError(t, err)

	visitor, err := f.svc.GetCourse(ctx, course.ID, false)
	require.NoError(t, err)
	require.Len(t, visitor.Lectures, 2)
	assert.Empty(t, visitor.Lectures[0].VideoURL, "paid lecture video hidden from non-enrolled viewers")
	assert.NotEmpty(t, visitor.Lectures[1].VideoURL, "free preview stays visible")

	enrolled, err := f.svc.GetCourse(ctx, course.ID, true)
	require.NoError(t, err)
	assert.NotEmpty(t, enrolled.Lectures[0].VideoURL)

	_, err = f.svc.GetCourse(ctx, primitive.NewObjectID(), false)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestLectureMutations_RecomputeTotalDuration(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	course := f.createCourse(t, 10)

	f.addLecture(t, course.ID, 300)
	updated := f.addLecture(t, course.ID, 200)
	assert.Equal(t, 500, updated.TotalDuration)

	stored, err := f.courses.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, stored.TotalDuration)

	lectureID := stored.Lectures[0].ID
	updated, err = f.svc.UpdateLecture(ctx, f.instructorID, course.ID, lectureID, LectureInput{Duration: 450})
	require.NoError(t, err)
	assert.Equal(t, 650, updated.TotalDuration)

	updated, err = f.svc.RemoveLecture(ctx, f.instructorID, course.ID, lectureID)
	require.NoError(t, err)
	assert.Equal(t, 200, updated.TotalDuration)
	assert.Len(t, updated.Lectures, 1)

	_, err = f.svc.RemoveLecture(ctx, f.instructorID, course.ID, lectureID)
	assert.ErrorIs(t, err, ErrLectureMissing)
}

func TestDeleteCourse(t *testing.T) {
	f := newCourseFixture()
	ctx := context.Background()
	course := f.createCourse(t, 30)
	f.addLecture(t, course.ID, 300)
	_, err := f.svc.PublishCourse(ctx, f.instructorID, course.ID)
	require.NoError(t, err)

	// Three buyers, one pending checkout, one review.
	var buyerPayments []primitive.ObjectID
	for i := 0; i < 3; i++ {
		userID := f.addUser(t)
		payment, err := f.paymentFixture.svc.MockPurchase(ctx, userID, course.ID)
		require.NoError(t, err)
		buyerPayments = append(buyerPayments, payment.ID)

		if i == 0 {
			_, err = NewReviewService(f.reviews, f.courses, f.enrollments).SubmitReview(ctx, userID, course.ID, 4, "solid")
			require.NoError(t, err)
		}
	}
	pendingID, err := f.payments.Create(ctx, &domain.Payment{
		UserID:   primitive.NewObjectID(),
		CourseID: course.ID,
		Amount:   30,
		Status:   domain.PaymentPending,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteCourse(ctx, course.ID))

	_, err = f.courses.GetByID(ctx, course.ID)
	assert.Error(t, err)

	reviews, err := f.reviews.GetByCourseID(ctx, course.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	for _, id := range buyerPayments {
		payment, err := f.payments.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentRefunded, payment.Status)
		assert.NotEmpty(t, payment.RefundReason)
	}
	pending, err := f.payments.GetByID(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, pending.Status, "only completed payments are refunded")

	// The enrollment ledger is append-only; deletion never rewrites history.
	for _, e := range f.enrollments.byPair {
		assert.Equal(t, course.ID, e.CourseID)
	}
	assert.Len(t, f.enrollments.byPair, 3)

	assert.ErrorIs(t, f.svc.DeleteCourse(ctx, primitive.NewObjectID()), ErrCourseNotFound)
}
