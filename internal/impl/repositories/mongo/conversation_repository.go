package repositories_mongo

import (
	"context"
	"time"

	"github.com/midagedev/dochi/internal/domain/entities"
	"github.com/midagedev/dochi/internal/domain/errs"
	"github.com/midagedev/dochi/internal/domain/interfaces"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoConversationRepository struct {
	collection *mongo.Collection
}

func NewMongoConversationRepository(collection *mongo.Collection) *MongoConversationRepository {
	return &MongoConversationRepository{
		collection: collection,
	}
}

func (r *MongoConversationRepository) ListConversations(ctx context.Context) ([]*entities.Conversation, error) {
	var conversations []*entities.Conversation
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errs.StorageErrorf("failed to list conversations: %v", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var conversation entities.Conversation
		if err := cursor.Decode(&conversation); err != nil {
			return nil, errs.StorageErrorf("failed to decode conversation: %v", err)
		}
		conversations = append(conversations, &conversation)
	}

	if err := cursor.Err(); err != nil {
		return nil, errs.StorageErrorf("failed to list conversations: %v", err)
	}

	return conversations, nil
}

func (r *MongoConversationRepository) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	var conversation entities.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conversation)
	if err == mongo.ErrNoDocuments {
		return nil, errs.NotFoundErrorf("conversation not found: %s", id)
	}
	if err != nil {
		return nil, errs.StorageErrorf("failed to get conversation: %v", err)
	}

	return &conversation, nil
}

func (r *MongoConversationRepository) CreateConversation(ctx context.Context, conversation *entities.Conversation) error {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	conversation.CreatedAt = time.Now()
	conversation.UpdatedAt = conversation.CreatedAt

	if _, err := r.collection.InsertOne(ctx, conversation); err != nil {
		return errs.StorageErrorf("failed to create conversation: %v", err)
	}

	return nil
}

func (r *MongoConversationRepository) UpdateConversation(ctx context.Context, conversation *entities.Conversation) error {
	previous := conversation.UpdatedAt
	conversation.UpdatedAt = time.Now()

	// Last write wins: only replace if the stored snapshot is not newer
	// than the one this write was based on.
	filter := bson.M{
		"_id":        conversation.ID,
		"updated_at": bson.M{"$lte": previous},
	}
	result, err := r.collection.ReplaceOne(ctx, filter, conversation)
	if err != nil {
		conversation.UpdatedAt = previous
		return errs.StorageErrorf("failed to update conversation: %v", err)
	}
	if result.MatchedCount == 0 {
		exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": conversation.ID})
		if err != nil {
			return errs.StorageErrorf("failed to update conversation: %v", err)
		}
		if exists == 0 {
			return errs.NotFoundErrorf("conversation not found: %s", conversation.ID)
		}
		// A newer write already landed; drop this one.
		return nil
	}

	return nil
}

func (r *MongoConversationRepository) AppendMessage(ctx context.Context, id string, message *entities.Message) error {
	conversation, err := r.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	if conversation.ReadOnly() {
		return errs.ReadOnlyErrorf("conversation %s is read-only", id)
	}

	update := bson.M{
		"$push": bson.M{"messages": message},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errs.StorageErrorf("failed to append message: %v", err)
	}
	if result.MatchedCount == 0 {
		return errs.NotFoundErrorf("conversation not found: %s", id)
	}

	return nil
}

func (r *MongoConversationRepository) RenameConversation(ctx context.Context, id, title string) error {
	update := bson.M{
		"$set": bson.M{"title": title, "updated_at": time.Now()},
	}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return errs.StorageErrorf("failed to rename conversation: %v", err)
	}
	if result.MatchedCount == 0 {
		return errs.NotFoundErrorf("conversation not found: %s", id)
	}

	return nil
}

func (r *MongoConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	// Idempotent: deleting an absent conversation is not an error.
	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return errs.StorageErrorf("failed to delete conversation: %v", err)
	}
	return nil
}

var _ interfaces.ConversationRepository = (*MongoConversationRepository)(nil)
