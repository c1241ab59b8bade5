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

const courseCollectionName = "courses"

// mongoCourseRepository implements repository.CourseRepository
type mongoCourseRepository struct {
	collection *mongo.Collection
}

// NewMongoCourseRepository creates a new Course repository backed by MongoDB.
func NewMongoCourseRepository(db *mongo.Database) repository.CourseRepository {
	return &mongoCourseRepository{
		collection: db.Collection(courseCollectionName),
	}
}

// Create inserts a new course into the database.
func (r *mongoCourseRepository) Create(ctx context.Context, course *domain.Course) (primitive.ObjectID, error) {
	if course.Title == "" || course.InstructorID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("course requires a title and instructorId")
	}

	course.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	if course.Status == "" {
		course.Status = domain.CourseDraft
	}
	// Lectures carry their own embedded identity.
	for i := range course.Lectures {
		if course.Lectures[i].ID == primitive.NilObjectID {
			course.Lectures[i].ID = primitive.NewObjectID()
		}
	}
	course.TotalDuration = course.LectureDurationSum()

	result, err := r.collection.InsertOne(ctx, course)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted course ID")
	}

	return insertedID, nil
}

// GetByID retrieves a course by its ID.
func (r *mongoCourseRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Course, error) {
	var course domain.Course
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&course)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

// GetByInstructorID retrieves all courses owned by a specific instructor.
func (r *mongoCourseRepository) GetByInstructorID(ctx context.Context, instructorID primitive.ObjectID) ([]domain.Course, error) {
	var courses []domain.Course
	filter := bson.M{"instructorId": instructorID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// ListPublished retrieves all courses visible in the public catalog.
func (r *mongoCourseRepository) ListPublished(ctx context.Context) ([]domain.Course, error) {
	var courses []domain.Course
	filter := bson.M{"status": domain.CoursePublished}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &courses); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return courses, nil
}

// Update modifies the catalog fields of an existing course. The derived
// aggregate fields (enrollmentCount, averageRating, totalRatings,
// totalDuration) are deliberately absent from the $set document; they are
// writable only through the dedicated methods below.
func (r *mongoCourseRepository) Update(ctx context.Context, course *domain.Course) error {
	if course.ID == primitive.NilObjectID {
		return errors.New("course ID is required for update")
	}

	filter := bson.M{"_id": course.ID}
	updateFields := bson.M{
		"title":            course.Title,
		"subtitle":         course.Subtitle,
		"description":      course.Description,
		"price":            course.Price,
		"category":         course.Category,
		"subCategory":      course.SubCategory,
		"level":            course.Level,
		"language":         course.Language,
		"thumbnail":        course.Thumbnail,
		"lectures":         course.Lectures,
		"status":           course.Status,
		"requirements":     course.Requirements,
		"whatYouWillLearn": course.WhatYouWillLearn,
		"tags":             course.Tags,
		"isApproved":       course.IsApproved,
		"updatedAt":        time.Now().UTC(),
	}
	if course.DiscountPrice != nil {
		updateFields["discountPrice"] = *course.DiscountPrice
	}
	if course.ApprovedBy != nil {
		updateFields["approvedBy"] = *course.ApprovedBy
		updateFields["approvedAt"] = course.ApprovedAt
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": updateFields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a course document.
func (r *mongoCourseRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// IncrementEnrollmentCount bumps the enrollment counter with an atomic $inc,
// never a read-modify-write of the whole document, so concurrent enrollments
// cannot lose updates.
func (r *mongoCourseRepository) IncrementEnrollmentCount(ctx context.Context, id primitive.ObjectID, delta int) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$inc": bson.M{"enrollmentCount": delta},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
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

// SetRatingStats overwrites the derived rating aggregates. Callers recompute
// them from the full review set; the write itself carries no delta, so
// re-running it any number of times is safe.
func (r *mongoCourseRepository) SetRatingStats(ctx context.Context, id primitive.ObjectID, average float64, total int) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"averageRating": average,
			"totalRatings":  total,
			"updatedAt":     time.Now().UTC(),
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

// SetTotalDuration overwrites the derived lecture-duration sum.
func (r *mongoCourseRepository) SetTotalDuration(ctx context.Context, id primitive.ObjectID, seconds int) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"totalDuration": seconds,
			"updatedAt":     time.Now().UTC(),
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

// EnsureCourseIndexes creates necessary indexes for the courses collection.
func EnsureCourseIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "instructorId", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index(),
		},
		{
			// catalog queries filter on minimum rating
			Keys:    bson.D{{Key: "averageRating", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
