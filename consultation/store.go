// Package consultation keeps consultation sessions and their message history in MongoDB.
package consultation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariebrainware/medibot/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding sessions.
const CollectionName = "consultation_sessions"

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

var (
	ErrSessionNotFound = errors.New("consultation session not found")
	ErrSessionClosed   = errors.New("consultation session is closed")
	ErrInvalidID       = errors.New("invalid session id")
	ErrInvalidRole     = errors.New("role must be one of user, assistant, system")
)

var validRoles = map[string]bool{"user": true, "assistant": true, "system": true}

// ValidRole reports whether role may author a message.
func ValidRole(role string) bool {
	return validRoles[role]
}

// Store is the persistence contract used by the consultation endpoints.
type Store interface {
	Start(ctx context.Context, userID uint) (model.ConsultationSession, error)
	AppendMessage(ctx context.Context, sessionID string, msg model.ConsultationMessage) (model.ConsultationMessage, error)
	End(ctx context.Context, sessionID string) (model.ConsultationSession, error)
	ListByUser(ctx context.Context, userID uint, limit int64) ([]model.ConsultationSession, error)
}

// MongoStore implements Store on a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName), now: func() time.Time { return time.Now().UTC() }}
}

// EnsureIndexes creates the lookup indexes used by history queries.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "start_time", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create consultation indexes: %w", err)
	}
	return nil
}

// Start opens a new active session for userID.
func (s *MongoStore) Start(ctx context.Context, userID uint) (model.ConsultationSession, error) {
	session := model.ConsultationSession{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Status:    model.SessionActive,
		StartTime: s.now(),
		Messages:  []model.ConsultationMessage{},
	}
	if _, err := s.coll.InsertOne(ctx, session); err != nil {
		return model.ConsultationSession{}, fmt.Errorf("insert consultation session: %w", err)
	}
	return session, nil
}

// AppendMessage pushes msg onto an active session. The timestamp is assigned here.
func (s *MongoStore) AppendMessage(ctx context.Context, sessionID string, msg model.ConsultationMessage) (model.ConsultationMessage, error) {
	if !ValidRole(msg.Role) {
		return model.ConsultationMessage{}, ErrInvalidRole
	}
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return model.ConsultationMessage{}, ErrInvalidID
	}
	msg.Timestamp = s.now()

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id, "status": model.SessionActive},
		bson.M{"$push": bson.M{"messages": msg}},
	)
	if err != nil {
		return model.ConsultationMessage{}, fmt.Errorf("append consultation message: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ConsultationMessage{}, s.missingOrClosed(ctx, id)
	}
	return msg, nil
}

// End closes an active session and returns it.
func (s *MongoStore) End(ctx context.Context, sessionID string) (model.ConsultationSession, error) {
	id, err := primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		return model.ConsultationSession{}, ErrInvalidID
	}

	var session model.ConsultationSession
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": model.SessionActive},
		bson.M{"$set": bson.M{"status": model.SessionClosed, "end_time": s.now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&session)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.ConsultationSession{}, s.missingOrClosed(ctx, id)
	}
	if err != nil {
		return model.ConsultationSession{}, fmt.Errorf("end consultation session: %w", err)
	}
	return session, nil
}

// ListByUser returns the user's sessions, newest first.
func (s *MongoStore) ListByUser(ctx context.Context, userID uint, limit int64) ([]model.ConsultationSession, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "start_time", Value: -1}}).
		SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find consultation sessions: %w", err)
	}
	defer cur.Close(ctx)

	sessions := []model.ConsultationSession{}
	if err := cur.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("decode consultation sessions: %w", err)
	}
	return sessions, nil
}

func (s *MongoStore) missingOrClosed(ctx context.Context, id primitive.ObjectID) error {
	err := s.coll.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"status": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup consultation session: %w", err)
	}
	return ErrSessionClosed
}
