package domain

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is one record per (user, course) pair, enforced by a unique
// compound index.
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID  primitive.ObjectID `bson:"courseId" json:"courseId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Rating    int                `bson:"rating" json:"rating"` // 1-5
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// AverageRating is the recomputation source for the derived course rating
// fields: the mean of all current ratings, rounded to one decimal. An empty
// review set yields 0.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	total := 0
	for _, r := range ratings {
		total += r
	}
	mean := float64(total) / float64(len(ratings))
	return math.Round(mean*10) / 10
}
