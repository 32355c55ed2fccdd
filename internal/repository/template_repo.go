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

type TemplateRepo struct {
	collection *mongo.Collection
}

func NewTemplateRepo() *TemplateRepo {
	return &TemplateRepo{
		collection: database.GetCollection("feedback_templates"),
	}
}

func (r *TemplateRepo) Create(ctx context.Context, tmpl *models.FeedbackTemplate) error {
	tmpl.CreatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, tmpl)
	if err != nil {
		return err
	}
	tmpl.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

func (r *TemplateRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.FeedbackTemplate, error) {
	var tmpl models.FeedbackTemplate
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&tmpl)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

func (r *TemplateRepo) ListByOwner(ctx context.Context, ownerID bson.ObjectID) ([]*models.FeedbackTemplate, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner_id": ownerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tmpls []*models.FeedbackTemplate
	if err := cursor.All(ctx, &tmpls); err != nil {
		return nil, err
	}
	return tmpls, nil
}

// EnsureIndexes creates necessary indexes for the feedback_templates collection
func (r *TemplateRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
