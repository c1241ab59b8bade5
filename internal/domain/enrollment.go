package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Enrollment is the authoritative fact that a user is enrolled in a course.
// A unique compound index on (userId, courseId) makes its insert the single
// atomic decision point of the enroll flow; user.EnrolledCourses is only a
// denormalized cache of these records.
type Enrollment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	CourseID  primitive.ObjectID `bson:"courseId" json:"courseId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
