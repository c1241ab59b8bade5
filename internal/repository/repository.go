package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDuplicate    = RepositoryError("duplicate key")
	ErrConflict     = RepositoryError("conflicting concurrent update")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	// AddEnrolledCourse appends courseID to the user's enrolledCourses cache
	// with $addToSet, so repeating the call is a no-op.
	AddEnrolledCourse(ctx context.Context, userID, courseID primitive.ObjectID) error
	AddToWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error
	RemoveFromWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error
}

// CourseRepository defines the interface for interacting with course data.
// The derived aggregate fields (enrollmentCount, averageRating, totalRatings,
// totalDuration) are writable only through the dedicated methods below;
// Update explicitly excludes them.
type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Course, error)
	GetByInstructorID(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Course, error)
	ListPublished(ctx context.Context) ([]domain.Course, error)
	Update(ctx context.Context, course *domain.Course) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	IncrementEnrollmentCount(ctx context.Context, id primitive.ObjectID, delta int) error
	SetRatingStats(ctx context.Context, id primitive.ObjectID, average float64, total int) error
	SetTotalDuration(ctx context.Context, id primitive.ObjectID, seconds int) error
}

// EnrollmentRepository is the ledger of (user, course) enrollment facts.
type EnrollmentRepository interface {
	// Create inserts the enrollment fact. The (userId, courseId) unique index
	// makes this a conditional insert: when the pair already exists the
	// insert fails with ErrDuplicate, so exactly one of any number of
	// concurrent callers wins.
	Create(ctx context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error)
	Exists(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Enrollment, error)
}

// PaymentRepository defines the interface for interacting with payment data.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Payment, error)
	// HasCompleted reports whether at least one completed payment exists for
	// the (user, course) pair.
	HasCompleted(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error)
	// SetStatus transitions a payment and records the external reference.
	SetStatus(ctx context.Context, id primitive.ObjectID, status domain.PaymentStatus, transactionID string) error
	SetGatewayOrderID(ctx context.Context, id primitive.ObjectID, orderID string) error
	// RefundCompletedByCourse bulk-transitions all completed payments for the
	// course to refunded with the given reason, returning how many were
	// transitioned.
	RefundCompletedByCourse(ctx context.Context, courseID primitive.ObjectID, reason string) (int64, error)
}

// ProgressRepository defines the interface for interacting with progress data.
type ProgressRepository interface {
	// Upsert creates the progress record for its (user, course) pair if none
	// exists yet, using $setOnInsert so the call is idempotent and safe to
	// re-drive after a partial enroll failure.
	Upsert(ctx context.Context, progress *domain.Progress) error
	GetByUserAndCourse(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Progress, error)
	// UpdateVersioned persists the record conditional on the version it was
	// read at, incrementing the version. A concurrent writer having bumped
	// the version first surfaces as ErrConflict so the caller can re-read
	// and retry.
	UpdateVersioned(ctx context.Context, progress *domain.Progress) error
}

// ReviewRepository defines the interface for interacting with review data.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error)
	GetByUserAndCourse(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Review, error)
	GetByCourseID(ctx context.Context, courseID primitive.ObjectID) ([]domain.Review, error)
	Update(ctx context.Context, review *domain.Review) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByCourse(ctx context.Context, courseID primitive.ObjectID) error
}
