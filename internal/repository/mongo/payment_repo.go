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

const paymentCollectionName = "payments"

// mongoPaymentRepository implements repository.PaymentRepository
type mongoPaymentRepository struct {
	collection *mongo.Collection
}

// NewMongoPaymentRepository creates a new Payment repository backed by MongoDB.
func NewMongoPaymentRepository(db *mongo.Database) repository.PaymentRepository {
	return &mongoPaymentRepository{
		collection: db.Collection(paymentCollectionName),
	}
}

// Create inserts a new payment record.
func (r *mongoPaymentRepository) Create(ctx context.Context, payment *domain.Payment) (primitive.ObjectID, error) {
	if payment.UserID == primitive.NilObjectID || payment.CourseID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("payment requires userId and courseId")
	}

	payment.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if payment.Status == "" {
		payment.Status = domain.PaymentPending
	}
	if payment.Currency == "" {
		payment.Currency = "USD"
	}

	result, err := r.collection.InsertOne(ctx, payment)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted payment ID")
	}

	return insertedID, nil
}

// GetByID retrieves a payment by its ID.
func (r *mongoPaymentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Payment, error) {
	var payment domain.Payment
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// GetByUserID retrieves a user's payment history, newest first.
func (r *mongoPaymentRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) ([]domain.Payment, error) {
	var payments []domain.Payment
	filter := bson.M{"userId": userID}
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &payments); err != nil {
		return nil, err
	}
	if err = cursor.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// HasCompleted reports whether at least one completed payment exists for the
// (user, course) pair. This is the precondition the enrollment ledger checks
// for paid courses.
func (r *mongoPaymentRepository) HasCompleted(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"userId":   userID,
		"courseId": courseID,
		"status":   domain.PaymentCompleted,
	}

	err := r.collection.FindOne(ctx, filter).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetStatus transitions a payment and records the external transaction
// reference when one is available.
func (r *mongoPaymentRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status domain.PaymentStatus, transactionID string) error {
	filter := bson.M{"_id": id}
	updateFields := bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}
	if transactionID != "" {
		updateFields["transactionId"] = transactionID
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

// SetGatewayOrderID stores the opaque handle issued by the payment gateway
// at intent-creation time.
func (r *mongoPaymentRepository) SetGatewayOrderID(ctx context.Context, id primitive.ObjectID, orderID string) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"gatewayOrderId": orderID,
			"updatedAt":      time.Now().UTC(),
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

// RefundCompletedByCourse bulk-transitions all completed payments for the
// course to refunded. Only completed records match the filter, so failed and
// refunded payments keep their terminal status.
func (r *mongoPaymentRepository) RefundCompletedByCourse(ctx context.Context, courseID primitive.ObjectID, reason string) (int64, error) {
	filter := bson.M{
		"courseId": courseID,
		"status":   domain.PaymentCompleted,
	}
	update := bson.M{
		"$set": bson.M{
			"status":       domain.PaymentRefunded,
			"refundReason": reason,
			"updatedAt":    time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// EnsurePaymentIndexes creates necessary indexes for the payments collection.
func EnsurePaymentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// completed-payment precondition lookup
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "courseId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "courseId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
	}

	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
