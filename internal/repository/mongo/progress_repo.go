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

const progressCollectionName = "progress"

// mongoProgressRepository implements repository.ProgressRepository
type mongoProgressRepository struct {
	collection *mongo.Collection
}

// NewMongoProgressRepository creates a new Progress repository backed by MongoDB.
func NewMongoProgressRepository(db *mongo.Database) repository.ProgressRepository {
	return &mongoProgressRepository{
		collection: db.Collection(progressCollectionName),
	}
}

// Upsert creates the progress record for its (user, course) pair if none
// exists. Everything sits under $setOnInsert, so an existing record is left
// untouched and the call can be re-driven safely after a partial enroll
// failure.
func (r *mongoProgressRepository) Upsert(ctx context.Context, progress *domain.Progress) error {
	if progress.UserID == primitive.NilObjectID || progress.CourseID == primitive.NilObjectID {
		return errors.New("progress requires userId and courseId")
	}

	now := time.Now().UTC()
	filter := bson.M{"userId": progress.UserID, "courseId": progress.CourseID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":               primitive.NewObjectID(),
			"userId":            progress.UserID,
			"courseId":          progress.CourseID,
			"lectureProgress":   progress.LectureProgress,
			"overallProgress":   0,
			"completedLectures": 0,
			"totalLectures":     progress.TotalLectures,
			"isCompleted":       false,
			"lastAccessedAt":    now,
			"version":           int64(0),
			"createdAt":         now,
			"updatedAt":         now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// A concurrent upsert for the same pair can race into a duplicate key
		// on the unique index; the record exists then, which is what we want.
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return err
	}
	return nil
}

// GetByUserAndCourse retrieves the progress record for a (user, course) pair.
func (r *mongoProgressRepository) GetByUserAndCourse(ctx context.Context, userID, courseID primitive.ObjectID) (*domain.Progress, error) {
	var progress domain.Progress
	filter := bson.M{"userId": userID, "courseId": courseID}

	err := r.collection.FindOne(ctx, filter).Decode(&progress)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &progress, nil
}

// UpdateVersioned persists the full record conditional on the version it was
// read at. When a concurrent writer bumped the version first the filter
// matches nothing and the caller gets ErrConflict, so it can re-read the
// record and retry instead of silently overwriting the other update.
func (r *mongoProgressRepository) UpdateVersioned(ctx context.Context, progress *domain.Progress) error {
	if progress.ID == primitive.NilObjectID {
		return errors.New("progress ID is required for update")
	}

	filter := bson.M{"_id": progress.ID, "version": progress.Version}
	update := bson.M{
		"$set": bson.M{
			"lectureProgress":   progress.LectureProgress,
			"overallProgress":   progress.OverallProgress,
			"completedLectures": progress.CompletedLectures,
			"isCompleted":       progress.IsCompleted,
			"completedAt":       progress.CompletedAt,
			"lastAccessedAt":    progress.LastAccessedAt,
			"updatedAt":         time.Now().UTC(),
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrConflict
	}
	return nil
}

// EnsureProgressIndexes creates necessary indexes for the progress
// collection; one record per (user, course) pair is enforced here.
func EnsureProgressIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "courseId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
