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
	ErrNotEnrolled      = errors.New("no progress record: user is not enrolled in this course")
	ErrLectureNotFound  = errors.New("lecture not found in progress record")
	ErrProgressConflict = errors.New("progress update conflicted with concurrent writes; retries exhausted")
)

// Concurrent updates for different lectures of the same record are expected
// (a learner with two tabs open); a couple of retries resolve them.
const maxProgressRetries = 3

// LectureUpdate carries the partial update for one lecture. Nil fields are
// left untouched.
type LectureUpdate struct {
	Completed       *bool
	WatchedDuration *int
	QuizScore       *int
}

// ProgressService maintains per-user-per-course lecture completion state and
// its derived aggregates.
type ProgressService interface {
	RecordLectureProgress(ctx context.Context, userID, courseID, lectureID primitive.ObjectID, update LectureUpdate) (*domain.Progress, error)
	GetProgress(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Progress, error)
}

// --- Service Implementation ---

type progressService struct {
	progressRepo repository.ProgressRepository
	notifier     notify.Notifier
}

// NewProgressService creates a new instance of progressService.
func NewProgressService(progressRepo repository.ProgressRepository, notifier notify.Notifier) ProgressService {
	return &progressService{
		progressRepo: progressRepo,
		notifier:     notifier,
	}
}

// RecordLectureProgress applies a partial update to one lecture's entry and
// recomputes the record's derived aggregates.
//
// The write is a read-modify-write guarded by the record's version: when a
// concurrent call updated another lecture of the same record first, the
// conditional write misses, and we re-read and reapply so neither update is
// lost. Repeating a call with identical arguments converges to the same
// state (only the lastWatchedAt/lastAccessedAt timestamps move).
func (s *progressService) RecordLectureProgress(ctx context.Context, userID, courseID, lectureID primitive.ObjectID, update LectureUpdate) (*domain.Progress, error) {
	for attempt := 0; attempt < maxProgressRetries; attempt++ {
		progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, courseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotEnrolled
			}
			return nil, err
		}

		entry := progress.Entry(lectureID)
		if entry == nil {
			// The lecture set was frozen when the record was created;
			// lectures added to the course later are not tracked here.
			return nil, ErrLectureNotFound
		}

		now := time.Now().UTC()
		if update.Completed != nil {
			entry.Completed = *update.Completed
		}
		if update.WatchedDuration != nil {
			entry.WatchedDuration = *update.WatchedDuration
		}
		if update.QuizScore != nil {
			entry.QuizScore = update.QuizScore
		}
		entry.LastWatchedAt = &now

		wasCompleted := progress.IsCompleted
		progress.Recalculate(now)
		progress.LastAccessedAt = now

		err = s.progressRepo.UpdateVersioned(ctx, progress)
		if err == nil {
			if progress.IsCompleted && !wasCompleted {
				if nerr := s.notifier.Notify(ctx, notify.Event{
					Type:     notify.EventCourseCompleted,
					UserID:   userID,
					CourseID: courseID,
					At:       now,
				}); nerr != nil {
					log.Printf("WARN: completion notification failed: %v", nerr)
				}
			}
			return progress, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
	}

	log.Printf("WARN: progress update for user %s course %s lost %d version races", userID.Hex(), courseID.Hex(), maxProgressRetries)
	return nil, ErrProgressConflict
}

// GetProgress retrieves the progress record for a (user, course) pair.
func (s *progressService) GetProgress(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Progress, error) {
	progress, err := s.progressRepo.GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	return progress, nil
}
