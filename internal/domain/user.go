package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role type to distinguish between user roles
type Role string

// Define constants for roles
const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// User represents a platform account (student, instructor or admin).
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`    // Should be unique
	PasswordHash string             `bson:"passwordHash" json:"-"` // Never expose this via JSON
	Role         Role               `bson:"role" json:"role"`
	Bio          string             `bson:"bio,omitempty" json:"bio,omitempty"`
	Avatar       string             `bson:"avatar,omitempty" json:"avatar,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`

	// EnrolledCourses is a denormalized cache of the enrollment ledger.
	// It is only ever mutated with $addToSet, in the same flow that writes
	// the authoritative Enrollment record, so it contains no duplicates.
	EnrolledCourses []primitive.ObjectID `bson:"enrolledCourses,omitempty" json:"enrolledCourses,omitempty"`

	// Wishlist stores courses the user bookmarked for later.
	Wishlist []primitive.ObjectID `bson:"wishlist,omitempty" json:"wishlist,omitempty"`
}

func (u *User) IsInstructor() bool {
	return u.Role == RoleInstructor
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasEnrolled reports whether courseID is present in the user's cached
// enrollment list.
func (u *User) HasEnrolled(courseID primitive.ObjectID) bool {
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}
