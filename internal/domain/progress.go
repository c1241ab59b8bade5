package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LectureProgress is one entry per lecture that existed when the parent
// Progress record was created.
type LectureProgress struct {
	LectureID       primitive.ObjectID `bson:"lectureId" json:"lectureId"`
	Completed       bool               `bson:"completed" json:"completed"`
	WatchedDuration int                `bson:"watchedDuration" json:"watchedDuration"` // seconds
	LastWatchedAt   *time.Time         `bson:"lastWatchedAt,omitempty" json:"lastWatchedAt,omitempty"`
	QuizScore       *int               `bson:"quizScore,omitempty" json:"quizScore,omitempty"`
}

// Progress tracks one (user, course) pair. Exactly one record exists per
// pair, created at enrollment time.
//
// CompletedLectures and OverallProgress are derived from the lectureProgress
// entries; Recalculate is the only code that assigns them. TotalLectures is
// frozen at creation time and never recomputed from a possibly-changed
// lecture list. Version guards the read-modify-write cycle: every persisted
// update is conditional on the version it was computed from.
type Progress struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID `bson:"userId" json:"userId"`
	CourseID          primitive.ObjectID `bson:"courseId" json:"courseId"`
	LectureProgress   []LectureProgress  `bson:"lectureProgress" json:"lectureProgress"`
	OverallProgress   int                `bson:"overallProgress" json:"overallProgress"` // 0-100
	CompletedLectures int                `bson:"completedLectures" json:"completedLectures"`
	TotalLectures     int                `bson:"totalLectures" json:"totalLectures"`
	IsCompleted       bool               `bson:"isCompleted" json:"isCompleted"`
	CompletedAt       *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	LastAccessedAt    time.Time          `bson:"lastAccessedAt" json:"lastAccessedAt"`
	Version           int64              `bson:"version" json:"-"`
	CreatedAt         time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Entry returns the per-lecture entry for lectureID, or nil when the lecture
// was not part of the course at enrollment time.
func (p *Progress) Entry(lectureID primitive.ObjectID) *LectureProgress {
	for i := range p.LectureProgress {
		if p.LectureProgress[i].LectureID == lectureID {
			return &p.LectureProgress[i]
		}
	}
	return nil
}

// Recalculate refreshes the derived aggregate fields from the per-lecture
// entries and drives the one-way completion transition: IsCompleted flips to
// true the first time OverallProgress reaches 100, and CompletedAt is set
// then and never again.
func (p *Progress) Recalculate(now time.Time) {
	completed := 0
	for _, lp := range p.LectureProgress {
		if lp.Completed {
			completed++
		}
	}
	p.CompletedLectures = completed
	if p.TotalLectures > 0 {
		p.OverallProgress = int(math.Round(100 * float64(completed) / float64(p.TotalLectures)))
	} else {
		p.OverallProgress = 0
	}

	if p.OverallProgress == 100 && !p.IsCompleted {
		p.IsCompleted = true
		completedAt := now
		p.CompletedAt = &completedAt
	}
}
