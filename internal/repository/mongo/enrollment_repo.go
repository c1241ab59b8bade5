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

const enrollmentCollectionName = "enrollments"

// mongoEnrollmentRepository implements repository.EnrollmentRepository
type mongoEnrollmentRepository struct {
	collection *mongo.Collection
}

// NewMongoEnrollmentRepository creates a new Enrollment repository backed by MongoDB.
func NewMongoEnrollmentRepository(db *mongo.Database) repository.EnrollmentRepository {
	return &mongoEnrollmentRepository{
		collection: db.Collection(enrollmentCollectionName),
	}
}

// Create inserts the (user, course) enrollment fact. The unique compound
// index on (userId, courseId) turns this into a conditional insert: of any
// number of concurrent callers for the same pair, exactly one insert
// succeeds and the rest observe ErrDuplicate.
func (r *mongoEnrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) (primitive.ObjectID, error) {
	if enrollment.UserID == primitive.NilObjectID || enrollment.CourseID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("enrollment requires userId and courseId")
	}

	enrollment.ID = primitive.NewObjectID()
	enrollment.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, enrollment)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted enrollment ID")
	}

	return insertedID, nil
}

// Exists reports whether the user is enrolled in the course.
func (r *mongoEnrollmentRepository) Exists(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	filter := bson.M{"userId": userID, "courseId": courseID}

	err := r.collection.FindOne(ctx, filter).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetByUserID retrieves all enrollment facts for a user, newest first.
func (r *mongoEnrollmentRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Enrollment, error) {
	var enrollments []domain.Enrollment
	filter := bson.M{"userId": userID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &enrollments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// EnsureEnrollmentIndexes creates necessary indexes for the enrollments
// collection. The unique (userId, courseId) index is load-bearing: it is the
// conditional-insert primitive that prevents double enrollment.
func EnsureEnrollmentIndexes(ctx context.Context, collection *mongo.Collection) {
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
