package service

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/gateway"
	"saumya185/course-platform/internal/notify"
	"saumya185/course-platform/internal/repository"
)

// In-memory repository fakes shared by the service tests. They are
// mutex-guarded so the concurrency tests can hit them from several
// goroutines, and they reproduce the error contracts of the real
// repositories (ErrNotFound, ErrDuplicate, ErrConflict).

func pairKey(userID, courseID primitive.ObjectID) string {
	return userID.Hex() + "/" + courseID.Hex()
}

// --- users ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	copied := *user
	copied.ID = id
	r.users[id] = &copied
	return id, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) AddEnrolledCourse(ctx context.Context, userID, courseID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return nil
		}
	}
	u.EnrolledCourses = append(u.EnrolledCourses, courseID)
	return nil
}

func (r *memUserRepo) AddToWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, id := range u.Wishlist {
		if id == courseID {
			return nil
		}
	}
	u.Wishlist = append(u.Wishlist, courseID)
	return nil
}

func (r *memUserRepo) RemoveFromWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	kept := u.Wishlist[:0]
	for _, id := range u.Wishlist {
		if id != courseID {
			kept = append(kept, id)
		}
	}
	u.Wishlist = kept
	return nil
}

// --- courses ---

type memCourseRepo struct {
	mu      sync.Mutex
	courses map[primitive.ObjectID]*domain.Course
}

func newMemCourseRepo() *memCourseRepo {
	return &memCourseRepo{courses: make(map[primitive.ObjectID]*domain.Course)}
}

func (r *memCourseRepo) put(course *domain.Course) primitive.ObjectID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if course.ID == primitive.NilObjectID {
		course.ID = primitive.NewObjectID()
	}
	copied := *course
	r.courses[course.ID] = &copied
	return course.ID
}

func (r *memCourseRepo) Create(ctx context.Context, course *domain.Course) (primitive.ObjectID, error) {
	return r.put(course), nil
}

func (r *memCourseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *c
	copied.Lectures = append([]domain.Lecture(nil), c.Lectures...)
	return &copied, nil
}

func (r *memCourseRepo) GetByInstructorID(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Course
	for _, c := range r.courses {
		if c.InstructorID == instructorID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memCourseRepo) ListPublished(ctx context.Context) ([]domain.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Course
	for _, c := range r.courses {
		if c.Status == domain.CoursePublished {
			out = append(out, *c)
		}
	}
	return out, nil
}

// Update mirrors the real repository: the derived aggregate fields of the
// stored record survive the update untouched.
func (r *memCourseRepo) Update(ctx context.Context, course *domain.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.courses[course.ID]
	if !ok {
		return repository.ErrNotFound
	}
	copied := *course
	copied.Lectures = append([]domain.Lecture(nil), course.Lectures...)
	copied.EnrollmentCount = stored.EnrollmentCount
	copied.AverageRating = stored.AverageRating
	copied.TotalRatings = stored.TotalRatings
	copied.TotalDuration = stored.TotalDuration
	r.courses[course.ID] = &copied
	return nil
}

func (r *memCourseRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.courses, id)
	return nil
}

func (r *memCourseRepo) IncrementEnrollmentCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.EnrollmentCount += delta
	return nil
}

func (r *memCourseRepo) SetRatingStats(ctx context.Context, id primitive.ObjectID, average float64, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.AverageRating = average
	c.TotalRatings = total
	return nil
}

func (r *memCourseRepo) SetTotalDuration(ctx context.Context, id primitive.ObjectID, seconds int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.TotalDuration = seconds
	return nil
}

// --- enrollments ---

type memEnrollmentRepo struct {
	mu     sync.Mutex
	byPair map[string]domain.Enrollment
}

func newMemEnrollmentRepo() *memEnrollmentRepo {
	return &memEnrollmentRepo{byPair: make(map[string]domain.Enrollment)}
}

// Create behaves like an insert against the unique (userId, courseId) index:
// under the lock, exactly one of any number of concurrent callers wins.
func (r *memEnrollmentRepo) Create(ctx context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(enrollment.UserID, enrollment.CourseID)
	if _, ok := r.byPair[key]; ok {
		return primitive.NilObjectID, repository.ErrDuplicate
	}
	id := primitive.NewObjectID()
	copied := *enrollment
	copied.ID = id
	r.byPair[key] = copied
	return id, nil
}

func (r *memEnrollmentRepo) Exists(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byPair[pairKey(userID, courseID)]
	return ok, nil
}

func (r *memEnrollmentRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Enrollment
	for _, e := range r.byPair {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- payments ---

type memPaymentRepo struct {
	mu       sync.Mutex
	payments map[primitive.ObjectID]*domain.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{payments: make(map[primitive.ObjectID]*domain.Payment)}
}

func (r *memPaymentRepo) Create(ctx context.Context, payment *domain.Payment) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := primitive.NewObjectID()
	copied := *payment
	copied.ID = id
	r.payments[id] = &copied
	return id, nil
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memPaymentRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) HasCompleted(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.UserID == userID && p.CourseID == courseID && p.Status == domain.PaymentCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (r *memPaymentRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.PaymentStatus, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	return nil
}

func (r *memPaymentRepo) SetGatewayOrderID(ctx context.Context, id primitive.ObjectID, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.GatewayOrderID = orderID
	return nil
}

func (r *memPaymentRepo) RefundCompletedByCourse(ctx context.Context, courseID primitive.ObjectID, reason string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range r.payments {
		if p.CourseID == courseID && p.Status == domain.PaymentCompleted {
			p.Status = domain.PaymentRefunded
			p.RefundReason = reason
			n++
		}
	}
	return n, nil
}

// --- progress ---

type memProgressRepo struct {
	mu     sync.Mutex
	byPair map[string]*domain.Progress

	// conflictsLeft forces UpdateVersioned to fail that many times with
	// ErrConflict, bumping the stored version as a concurrent writer would.
	conflictsLeft int
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{byPair: make(map[string]*domain.Progress)}
}

func (r *memProgressRepo) Upsert(ctx context.Context, progress *domain.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(progress.UserID, progress.CourseID)
	if _, ok := r.byPair[key]; ok {
		return nil
	}
	copied := *progress
	copied.ID = primitive.NewObjectID()
	copied.LectureProgress = append([]domain.LectureProgress(nil), progress.LectureProgress...)
	copied.Version = 0
	r.byPair[key] = &copied
	return nil
}

func (r *memProgressRepo) GetByUserAndCourse(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byPair[pairKey(userID, courseID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *p
	copied.LectureProgress = append([]domain.LectureProgress(nil), p.LectureProgress...)
	return &copied, nil
}

func (r *memProgressRepo) UpdateVersioned(ctx context.Context, progress *domain.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(progress.UserID, progress.CourseID)
	stored, ok := r.byPair[key]
	if !ok {
		return repository.ErrNotFound
	}
	if r.conflictsLeft > 0 {
		r.conflictsLeft--
		stored.Version++
		return repository.ErrConflict
	}
	if stored.Version != progress.Version {
		return repository.ErrConflict
	}
	copied := *progress
	copied.LectureProgress = append([]domain.LectureProgress(nil), progress.LectureProgress...)
	copied.Version = stored.Version + 1
	r.byPair[key] = &copied
	return nil
}

// --- reviews ---

type memReviewRepo struct {
	mu      sync.Mutex
	reviews map[primitive.ObjectID]*domain.Review
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{reviews: make(map[primitive.ObjectID]*domain.Review)}
}

func (r *memReviewRepo) Create(ctx context.Context, review *domain.Review) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reviews {
		if existing.UserID == review.UserID && existing.CourseID == review.CourseID {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	id := primitive.NewObjectID()
	copied := *review
	copied.ID = id
	r.reviews[id] = &copied
	return id, nil
}

func (r *memReviewRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rev, ok := r.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *rev
	return &copied, nil
}

func (r *memReviewRepo) GetByUserAndCourse(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rev := range r.reviews {
		if rev.UserID == userID && rev.CourseID == courseID {
			copied := *rev
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memReviewRepo) GetByCourseID(ctx context.Context, courseID primitive.ObjectID) ([]domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Review
	for _, rev := range r.reviews {
		if rev.CourseID == courseID {
			out = append(out, *rev)
		}
	}
	return out, nil
}

func (r *memReviewRepo) Update(ctx context.Context, review *domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[review.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *review
	r.reviews[review.ID] = &copied
	return nil
}

func (r *memReviewRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.reviews, id)
	return nil
}

func (r *memReviewRepo) DeleteByCourse(ctx context.Context, courseID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rev := range r.reviews {
		if rev.CourseID == courseID {
			delete(r.reviews, id)
		}
	}
	return nil
}

// --- notifier ---

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) byType(t notify.EventType) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, e := range n.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// --- gateway ---

type stubGateway struct {
	createIntentFn func(ctx context.Context, payment *domain.Payment) (*gateway.Intent, error)
	verifyFn       func(ctx context.Context, reference string) (gateway.VerificationStatus, error)
}

func (g *stubGateway) CreateIntent(ctx context.Context, payment *domain.Payment) (*gateway.Intent, error) {
	if g.createIntentFn != nil {
		return g.createIntentFn(ctx, payment)
	}
	return &gateway.Intent{OrderID: "order_" + payment.ID.Hex(), ClientToken: "token"}, nil
}

func (g *stubGateway) VerifyTransaction(ctx context.Context, reference string) (gateway.VerificationStatus, error) {
	if g.verifyFn != nil {
		return g.verifyFn(ctx, reference)
	}
	return gateway.VerificationSucceeded, nil
}
