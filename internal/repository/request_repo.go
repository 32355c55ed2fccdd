package repository

import (
	"context"
	"time"

	"candor-backend/internal/database"
	"candor-backend/internal/models"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type RequestRepo struct {
	collection *mongo.Collection
}

func NewRequestRepo() *RequestRepo {
	return &RequestRepo{
		collection: database.GetCollection("feedback_requests"),
	}
}

func (r *RequestRepo) Create(ctx context.Context, req *models.FeedbackRequest) error {
	req.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, req)
	if err != nil {
		return err
	}
	req.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// InsertBatch persists a fan-out batch in one ordered InsertMany. The batch is
// fully constructed and validated in memory before this call, so an insert
// error aborts the remainder of the batch.
func (r *RequestRepo) InsertBatch(ctx context.Context, reqs []*models.FeedbackRequest) error {
	docs := make([]interface{}, 0, len(reqs))
	now := time.Now()
	for _, req := range reqs {
		req.CreatedAt = now
		docs = append(docs, req)
	}
	result, err := r.collection.InsertMany(ctx, docs)
	if err != nil {
		return err
	}
	for i, id := range result.InsertedIDs {
		reqs[i].ID = id.(bson.ObjectID)
	}
	return nil
}

func (r *RequestRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.FeedbackRequest, error) {
	var req models.FeedbackRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) FindByUniqueLink(ctx context.Context, link string) (*models.FeedbackRequest, error) {
	var req models.FeedbackRequest
	err := r.collection.FindOne(ctx, bson.M{"unique_link": link}).Decode(&req)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *RequestRepo) ListByRequestor(ctx context.Context, requestorID bson.ObjectID) ([]*models.FeedbackRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"requestor_id": requestorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var reqs []*models.FeedbackRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// SetPrompt stores the finished conversation summary on a draft.
func (r *RequestRepo) SetPrompt(ctx context.Context, id bson.ObjectID, prompt string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"feedback_prompt": prompt},
	})
	return err
}

// SaveTransition writes back every field a status transition touches.
func (r *RequestRepo) SaveTransition(ctx context.Context, req *models.FeedbackRequest) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": req.ID}, bson.M{
		"$set": bson.M{
			"status":           req.Status,
			"recipient_name":   req.RecipientName,
			"recipient_email":  req.RecipientEmail,
			"personal_message": req.PersonalMessage,
			"unique_link":      req.UniqueLink,
			"expires_at":       req.ExpiresAt,
			"thread_id":        req.ThreadID,
			"feedback_text":    req.FeedbackText,
			"submitted_at":     req.SubmittedAt,
		},
	})
	return err
}

// EnsureIndexes creates necessary indexes for the feedback_requests collection
func (r *RequestRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "unique_link", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "requestor_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
