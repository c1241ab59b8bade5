package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"saumya185/course-platform/internal/domain"
	"saumya185/course-platform/internal/repository"
)

const reviewCollectionName = "reviews"

// mongoReviewRepository implements repository.ReviewRepository
type mongoReviewRepository struct {
	collection *mongo.Collection
}

// NewMongoReviewRepository creates a new Review repository backed by MongoDB.
func NewMongoReviewRepository(db *mongo.Database) repository.ReviewRepository {
	return &mongoReviewRepository{
		collection: db.Collection(reviewCollectionName),
	}
}

// Create inserts a new review.
func (r *mongoReviewRepository) Create(ctx context.Context, review *domain.Review) (primitive.ObjectID, error) {
	if review.UserID == primitive.NilObjectID || review.CourseID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("review requires userId and courseId")
	}

	review.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, review)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted review ID")
	}

	return insertedID, nil
}

// GetByID retrieves a review by its ID.
func (r *mongoReviewRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Review, error) {
	var review domain.Review
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// GetByUserAndCourse retrieves the single review a user left on a course.
func (r *mongoReviewRepository) GetByUserAndCourse(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Review, error) {
	var review domain.Review
	filter := bson.M{"userId": userID, "courseId": courseID}

	err := r.collection.FindOne(ctx, filter).Decode(&review)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &review, nil
}

// GetByCourseID retrieves all reviews for a course, newest first.
func (r *mongoReviewRepository) GetByCourseID(ctx context.Context, courseID primitive.ObjectID) ([]domain.Review, error) {
	var reviews []domain.Review
	filter := bson.M{"courseId": courseID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Update modifies the rating and comment of an existing review.
func (r *mongoReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	if review.ID == primitive.NilObjectID {
		return errors.New("review ID is required for update")
	}

	filter := bson.M{"_id": review.ID}
	update := bson.M{
		"$set": bson.M{
			"rating":    review.Rating,
			"comment":   review.Comment,
			"updatedAt": time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a review.
func (r *mongoReviewRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByCourse removes all reviews of a course (administrative course
// deletion).
func (r *mongoReviewRepository) DeleteByCourse(ctx context.Context, courseID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"courseId": courseID})
	return err
}

// EnsureReviewIndexes creates necessary indexes for the reviews collection;
// one review per (user, course) pair is enforced here.
func EnsureReviewIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "courseId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
