package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CourseStatus tracks a course through its catalog lifecycle.
type CourseStatus string

const (
	CourseDraft     CourseStatus = "draft"
	CoursePublished CourseStatus = "published"
	CourseArchived  CourseStatus = "archived"
)

// CourseLevel describes the intended audience of a course.
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "beginner"
	LevelIntermediate CourseLevel = "intermediate"
	LevelAdvanced     CourseLevel = "advanced"
	LevelAllLevels    CourseLevel = "all levels"
)

// Lecture is embedded in a Course; it has no lifecycle of its own and its
// identity is scoped to the parent course.
type Lecture struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	VideoURL    string             `bson:"videoUrl,omitempty" json:"videoUrl,omitempty"`
	Duration    int                `bson:"duration" json:"duration"` // seconds
	Order       int                `bson:"order" json:"order"`
	IsFree      bool               `bson:"isFree" json:"isFree"`
}

// Course is a catalog entry with its embedded, ordered lecture list.
//
// EnrollmentCount, AverageRating, TotalRatings and TotalDuration are derived
// fields. They are never assigned by handlers or services directly; only the
// dedicated repository operations (IncrementEnrollmentCount, SetRatingStats,
// SetTotalDuration) write them.
type Course struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title            string              `bson:"title" json:"title"`
	Subtitle         string              `bson:"subtitle,omitempty" json:"subtitle,omitempty"`
	Description      string              `bson:"description" json:"description"`
	Price            float64             `bson:"price" json:"price"`
	DiscountPrice    *float64            `bson:"discountPrice,omitempty" json:"discountPrice,omitempty"`
	Category         string              `bson:"category" json:"category"`
	SubCategory      string              `bson:"subCategory,omitempty" json:"subCategory,omitempty"`
	Level            CourseLevel         `bson:"level" json:"level"`
	Language         string              `bson:"language" json:"language"`
	Thumbnail        string              `bson:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	InstructorID     primitive.ObjectID  `bson:"instructorId" json:"instructorId"`
	Lectures         []Lecture           `bson:"lectures,omitempty" json:"lectures,omitempty"`
	Status           CourseStatus        `bson:"status" json:"status"`
	Requirements     []string            `bson:"requirements,omitempty" json:"requirements,omitempty"`
	WhatYouWillLearn []string            `bson:"whatYouWillLearn,omitempty" json:"whatYouWillLearn,omitempty"`
	Tags             []string            `bson:"tags,omitempty" json:"tags,omitempty"`
	EnrollmentCount  int                 `bson:"enrollmentCount" json:"enrollmentCount"`
	AverageRating    float64             `bson:"averageRating" json:"averageRating"`
	TotalRatings     int                 `bson:"totalRatings" json:"totalRatings"`
	TotalDuration    int                 `bson:"totalDuration" json:"totalDuration"` // seconds
	IsApproved       bool                `bson:"isApproved" json:"isApproved"`
	ApprovedBy       *primitive.ObjectID `bson:"approvedBy,omitempty" json:"approvedBy,omitempty"`
	ApprovedAt       *time.Time          `bson:"approvedAt,omitempty" json:"approvedAt,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// IsFree reports whether the course can be enrolled without a payment.
func (c *Course) IsFree() bool {
	return c.Price == 0
}

// EffectivePrice is the amount actually charged: the discount price when one
// is set, the list price otherwise.
func (c *Course) EffectivePrice() float64 {
	if c.DiscountPrice != nil {
		return *c.DiscountPrice
	}
	return c.Price
}

// Lecture returns the embedded lecture with the given ID, or nil.
func (c *Course) Lecture(id primitive.ObjectID) *Lecture {
	for i := range c.Lectures {
		if c.Lectures[i].ID == id {
			return &c.Lectures[i]
		}
	}
	return nil
}

// LectureDurationSum is the recomputation source for the derived
// TotalDuration field: the sum of all embedded lecture durations.
func (c *Course) LectureDurationSum() int {
	sum := 0
	for _, l := range c.Lectures {
		sum += l.Duration
	}
	return sum
}
