package service

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/notify"
	"saumya185/course-platform/internal/repository"
)

// --- Error Definitions ---
var (
	ErrCourseNotFound     = errors.New("course not found")
	ErrCourseNotAvailable = errors.New("course is not available for enrollment")
	ErrAlreadyEnrolled    = errors.New("already enrolled in this course")
	ErrPaymentRequired    = errors.New("payment required for this course")
)

// EnrolledCourse pairs a course with the caller's progress for the
// my-courses view.
type EnrolledCourse struct {
	domain.Course
	OverallProgress int        `json:"overallProgress"`
	LastAccessedAt  *time.Time `json:"lastAccessedAt,omitempty"`
}

// EnrollmentService is the enrollment ledger: it decides who is enrolled in
// what, enforces the payment precondition, and keeps the course enrollment
// counter and the per-user progress record consistent with the ledger.
type EnrollmentService interface {
	Enroll(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Course, error)
	IsEnrolled(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error)
	GetEnrolledCourses(ctx context.Context, userID primitive.ObjectID) ([]EnrolledCourse, error)
}

// --- Service Implementation ---

type enrollmentService struct {
	enrollmentRepo repository.EnrollmentRepository
	userRepo       repository.UserRepository
	courseRepo     repository.CourseRepository
	paymentRepo    repository.PaymentRepository
	progressRepo   repository.ProgressRepository
	notifier       notify.Notifier
}

// NewEnrollmentService creates a new instance of enrollmentService.
func NewEnrollmentService(
	enrollmentRepo repository.EnrollmentRepository,
	userRepo repository.UserRepository,
	courseRepo repository.CourseRepository,
	paymentRepo repository.PaymentRepository,
	progressRepo repository.ProgressRepository,
	notifier notify.Notifier,
) EnrollmentService {
	return &enrollmentService{
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		paymentRepo:    paymentRepo,
		progressRepo:   progressRepo,
		notifier:       notifier,
	}
}

// Enroll records the (user, course) enrollment fact.
//
// The multi-document effect (ledger record, enrolledCourses cache, counter,
// progress record) cannot be a single atomic write, so the steps are ordered
// for convergence: the idempotent ones come first and can be re-driven after
// a partial failure, the ledger insert is the single atomic decision point
// (the unique index rejects a second concurrent winner), and the counter is
// incremented only by the caller that won the insert, so it moves exactly
// once per enrollment.
func (s *enrollmentService) Enroll(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Course, error) {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, err
	}

	if course.Status != domain.CoursePublished {
		return nil, ErrCourseNotAvailable
	}

	// Fast-path duplicate check; the unique index below is the real guard.
	enrolled, err := s.enrollmentRepo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, ErrAlreadyEnrolled
	}

	if !course.IsFree() {
		paid, err := s.paymentRepo.HasCompleted(ctx, userID, courseID)
		if err != nil {
			return nil, err
		}
		if !paid {
			return nil, ErrPaymentRequired
		}
	}

	// Progress is initialized with one entry per current lecture, all
	// uncompleted; totalLectures is frozen here. The upsert is idempotent.
	if err := s.progressRepo.Upsert(ctx, newProgressFor(userID, course)); err != nil {
		return nil, err
	}

	// Cache append is idempotent ($addToSet).
	if err := s.userRepo.AddEnrolledCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}

	// The externally visible commit. A concurrent caller for the same pair
	// loses here and observes AlreadyEnrolled; the idempotent steps it
	// already ran left the same state the winner wrote.
	_, err = s.enrollmentRepo.Create(ctx, &domain.Enrollment{
		UserID:   userID,
		CourseID: courseID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, err
	}

	if err := s.courseRepo.IncrementEnrollmentCount(ctx, courseID, 1); err != nil {
		// The enrollment itself stands; only the derived counter is behind.
		log.Printf("WARN: enrollment count increment failed for course %s: %v", courseID.Hex(), err)
	}

	// Fire-and-forget: delivery failure must not fail the enrollment.
	if err := s.notifier.Notify(ctx, notify.Event{
		Type:     notify.EventEnrolled,
		UserID:   userID,
		CourseID: courseID,
		At:       time.Now().UTC(),
	}); err != nil {
		log.Printf("WARN: enrollment notification failed: %v", err)
	}

	return course, nil
}

// IsEnrolled reports whether the user is enrolled in the course.
func (s *enrollmentService) IsEnrolled(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	return s.enrollmentRepo.Exists(ctx, userID, courseID)
}

// GetEnrolledCourses returns the user's courses with their progress
// percentages for the my-courses view.
func (s *enrollmentService) GetEnrolledCourses(ctx context.Context, userID primitive.ObjectID) ([]EnrolledCourse, error) {
	enrollments, err := s.enrollmentRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	courses := make([]EnrolledCourse, 0, len(enrollments))
	for _, e := range enrollments {
		course, err := s.courseRepo.GetByID(ctx, e.CourseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue // course deleted by admin; enrollment fact remains
			}
			return nil, err
		}

		ec := EnrolledCourse{Course: *course}
		progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, e.CourseID)
		if err == nil {
			ec.OverallProgress = progress.OverallProgress
			ec.LastAccessedAt = &progress.LastAccessedAt
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		courses = append(courses, ec)
	}
	return courses, nil
}

// newProgressFor builds the initial progress record for an enrollment: one
// uncompleted entry per lecture the course has right now.
func newProgressFor(userID primitive.ObjectID, course *domain.Course) *domain.Progress {
	entries := make([]domain.LectureProgress, len(course.Lectures))
	for i, lecture := range course.Lectures {
		entries[i] = domain.LectureProgress{LectureID: lecture.ID}
	}
	return &domain.Progress{
		UserID:          userID,
		CourseID:        course.ID,
		LectureProgress: entries,
		TotalLectures:   len(course.Lectures),
	}
}
