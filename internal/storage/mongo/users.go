package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/fraternet/notify-service/internal/models"
	"github.com/fraternet/notify-service/internal/storage"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userProjection: поля профиля, нужные для рассылки.
var userProjection = bson.D{
	{Key: "firstName", Value: 1},
	{Key: "lastName", Value: 1},
	{Key: "fcmToken", Value: 1},
}

// idFilter строит фильтр по _id. Документы, перенесённые из Firestore, хранят
// строковый id; созданные в самой Mongo могут иметь ObjectID с тем же hex.
func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": bson.M{"$in": bson.A{id, oid}}}
	}

	return bson.M{"_id": id}
}

// UserByID возвращает профиль по идентификатору.
func (m *Mongo) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage/mongo/UserByID"

	var u models.User
	err := m.users.FindOne(ctx, idFilter(id), options.FindOne().SetProjection(userProjection)).Decode(&u)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if u.ID == "" {
		u.ID = id
	}

	return &u, nil
}

// ListUsers: полный проход коллекции users с проекцией.
func (m *Mongo) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage/mongo/ListUsers"

	cur, err := m.users.Find(ctx, bson.D{}, options.Find().SetProjection(userProjection))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
