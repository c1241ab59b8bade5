package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/notify"
)

type enrollmentFixture struct {
	enrollments *memEnrollmentRepo
	users       *memUserRepo
	courses     *memCourseRepo
	payments    *memPaymentRepo
	progress    *memProgressRepo
	notifier    *recordingNotifier
	svc         EnrollmentService
}

func newEnrollmentFixture() *enrollmentFixture {
	f := &enrollmentFixture{
		enrollments: newMemEnrollmentRepo(),
		users:       newMemUserRepo(),
		courses:     newMemCourseRepo(),
		payments:    newMemPaymentRepo(),
		progress:    newMemProgressRepo(),
		notifier:    &recordingNotifier{},
	}
	f.svc = NewEnrollmentService(f.enrollments, f.users, f.courses, f.payments, f.progress, f.notifier)
	return f
}

func (f *enrollmentFixture) addUser(t *testing.T) primitive.ObjectID {
	t.Helper()
	id, err := f.users.Create(context.Background(), &domain.User{
		Name:  "Student",
		Email: primitive.NewObjectID().Hex() + "@example.com",
		Role:  domain.RoleStudent,
	})
	require.NoError(t, err)
	return id
}

func (f *enrollmentFixture) addCourse(t *testing.T, price float64, status domain.CourseStatus, lectures int) *domain.Course {
	t.Helper()
	course := &domain.Course{
		Title:        "Course",
		Description:  "desc",
		Category:     "dev",
		Price:        price,
		Status:       status,
		InstructorID: primitive.NewObjectID(),
	}
	for i := 0; i < lectures; i++ {
		course.Lectures = append(course.Lectures, domain.Lecture{
			ID:       primitive.NewObjectID(),
			Title:    "Lecture",
			Duration: 300,
			Order:    i + 1,
		})
	}
	_, err := f.courses.Create(context.Background(), course)
	require.NoError(t, err)
	return course
}

func TestEnroll_FreeCourse(t *testing.T) {
	f := newEnrollmentFixture()
	ctx := context.Background()
	userID := f.addUser(t)
	course := f.addCourse(t, 0, domain.CoursePublished, 2)

	got, err := f.svc.Enroll(ctx, userID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, course.ID, got.ID)

	enrolled, err := f.svc.IsEnrolled(ctx, userID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)

	// Progress record created with the lecture set frozen at enrollment.
	progress, err := f.progress.GetByUserAndCourse(ctx, userID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.TotalLectures)
	assert.Len(t, progress.LectureProgress, 2)
	assert.Equal(t, 0, progress.OverallProgress)
	assert.False(t, progress.IsCompleted)

	// Cache and counter both moved.
	user, err := f.users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Contains(t, user.EnrolledCourses, course.ID)

	stored, err := f.courses.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EnrollmentCount)

	assert.Len(t, f.notifier.byType(notify.EventEnrolled), 1)
}

func TestEnroll_Twice(t *testing.T) {
	f := newEnrollmentFixture()
	ctx := context.Background()
	userID := f.addUser(t)
	course := f.addCourse(t, 0, domain.CoursePublished, 1)

	_, err := f.svc.Enroll(ctx, userID, course.ID)
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, userID, course.ID)
	assert.ErrorIs(t, err, ErrAlreadyEnrolled)

	stored, err := f.courses.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EnrollmentCount, "counter must move exactly once")
}

func TestEnroll_CourseNotFound(t *testing.T) {
	f := newEnrollmentFixture()
	userID := f.addUser(t)

	_, err := f.svc.Enroll(context.Background(), userID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestEnroll_DraftCourse(t *testing.T) {
	f := newEnrollmentFixture()
	userID := f.addUser(t)
	course := f.addCourse(t, 0, domain.CourseDraft, 1)

	_, err := f.svc.Enroll(context.Background(), userID, course.ID)
	assert.ErrorIs(t, err, ErrCourseNotAvailable)
}

func TestEnroll_PaidCourseRequiresCompletedPayment(t *testing.T) {
	f := newEnrollmentFixture()
	ctx := context.Background()
	userID := f.addUser(t)
	course := f.addCourse(t, 49.99, domain.CoursePublished, 1)

	_, err := f.svc.Enroll(ctx, userID, course.ID)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	// A pending payment is not enough.
	_, err = f.payments.Create(ctx, &domain.Payment{
		UserID:   userID,
		CourseID: course.ID,
		Amount:   49.99,
		Status:   domain.PaymentPending,
	})
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, userID, course.ID)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	_, err = f.payments.Create(ctx, &domain.Payment{
		UserID:   userID,
		CourseID: course.ID,
		Amount:   49.99,
		Status:   domain.PaymentCompleted,
	})
	require.NoError(t, err)

	_, err = f.svc.Enroll(ctx, userID, course.ID)
	require.NoError(t, err)

	enrolled, err := f.svc.IsEnrolled(ctx, userID, course.ID)
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestEnroll_ConcurrentSinglePairOneWinner(t *testing.T) {
	f := newEnrollmentFixture()
	ctx := context.Background()
	userID := f.addUser(t)
	course := f.addCourse(t, 0, domain.CoursePublished, 3)

	const callers = 16
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Enroll(ctx, userID, course.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		default:
			assert.ErrorIs(t, err, ErrAlreadyEnrolled)
		}
	}
	assert.Equal(t, 1, winners, "exactly one concurrent caller may win the ledger insert")

	stored, err := f.courses.GetByID(ctx, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.EnrollmentCount)
	assert.Len(t, f.notifier.byType(notify.EventEnrolled), 1)
}

func TestEnroll_TotalLecturesFrozen(t *testing.T) {
	f := newEnrollmentFixture()
	ctx := context.Background()
	userID := f.addUser(t)
	course := f.addCourse(t, 0, domain.CoursePublished, 2)

	_, err := f.svc.Enroll(ctx, userID, course.ID)
	require.NoError(t, err)

	// Instructor adds a third lecture after the enrollment.
	course.Lectures = append(course.Lectures, domain.Lecture{ID: primitive.NewObjectID(), Title: "New", Order: 3})
	require.NoError(t, f.courses.Update(ctx, course))

	progress, err := f.progress.GetByUserAndCourse(ctx, userID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, progress.TotalLectures)
	assert.Len(t, progress.LectureProgress, 2)
}

func TestGetEnrolledCourses(t *testing.T) {
	f := newEnrollmentFixture()
	ctx := context.Background()
	userID := f.addUser(t)
	kept := f.addCourse(t, 0, domain.CoursePublished, 1)
	deleted := f.addCourse(t, 0, domain.CoursePublished, 1)

	_, err := f.svc.Enroll(ctx, userID, kept.ID)
	require.NoError(t, err)
	_, err = f.svc.Enroll(ctx, userID, deleted.ID)
	require.NoError(t, err)

	// The course disappears but the enrollment fact remains; the listing
	// skips the orphan instead of failing.
	require.NoError(t, f.courses.Delete(ctx, deleted.ID))

	courses, err := f.svc.GetEnrolledCourses(ctx, userID)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, kept.ID, courses[0].ID)
	assert.Equal(t, 0, courses[0].OverallProgress)
	assert.NotNil(t, courses[0].LastAccessedAt)
}
