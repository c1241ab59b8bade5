package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/repository"
)

var ErrUserNotFound = errors.New("user not found")

// UserService covers the profile and wishlist surface.
type UserService interface {
	GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error)
	AddToWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error
	RemoveFromWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error
}

type userService struct {
	userRepo   repository.UserRepository
	courseRepo repository.CourseRepository
}

// NewUserService creates a new instance of userService.
func NewUserService(userRepo repository.UserRepository, courseRepo repository.CourseRepository) UserService {
	return &userService{
		userRepo:   userRepo,
		courseRepo: courseRepo,
	}
}

// GetProfile returns the user without their password hash.
func (s *userService) GetProfile(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// AddToWishlist bookmarks a course; $addToSet makes repeats harmless.
func (s *userService) AddToWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCourseNotFound
		}
		return err
	}

	err := s.userRepo.AddToWishlist(ctx, userID, courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// RemoveFromWishlist drops a bookmarked course.
func (s *userService) RemoveFromWishlist(ctx context.Context, userID, courseID primitive.ObjectID) error {
	err := s.userRepo.RemoveFromWishlist(ctx, userID, courseID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}
