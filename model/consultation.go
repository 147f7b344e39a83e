package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// ConsultationMessage is one turn of a consultation.
type ConsultationMessage struct {
	Role      string    `bson:"role" json:"role"`
	Content   string    `bson:"content" json:"content"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// ConsultationSession is stored in the consultation_sessions collection.
type ConsultationSession struct {
	ID        primitive.ObjectID    `bson:"_id,omitempty" json:"id"`
	UserID    uint                  `bson:"user_id" json:"user_id"`
	Status    string                `bson:"status" json:"status"`
	StartTime time.Time             `bson:"start_time" json:"start_time"`
	EndTime   *time.Time            `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Messages  []ConsultationMessage `bson:"messages" json:"messages"`
}
