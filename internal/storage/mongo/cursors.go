package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fraternet/notify-service/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cursorDoc struct {
	Name      string    `bson:"_id"`
	Token     []byte    `bson:"token"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// ResumeToken возвращает сохранённый resume token источника name.
func (m *Mongo) ResumeToken(ctx context.Context, name string) ([]byte, error) {
	const op = "storage/mongo/ResumeToken"

	var doc cursorDoc
	if err := m.cursors.FindOne(ctx, bson.M{"_id": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(doc.Token) == 0 {
		return nil, storage.ErrNotFound
	}

	return doc.Token, nil
}

// SaveResumeToken сохраняет (upsert) resume token источника name.
func (m *Mongo) SaveResumeToken(ctx context.Context, name string, token []byte) error {
	const op = "storage/mongo/SaveResumeToken"

	update := bson.M{"$set": bson.M{
		"token":      token,
		"updated_at": time.Now().UTC(),
	}}

	_, err := m.cursors.UpdateOne(ctx, bson.M{"_id": name}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
