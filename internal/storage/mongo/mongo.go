package mongo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/fraternet/notify-service/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	UsersCollection   = "users"
	PostsCollection   = "posts"
	EventsCollection  = "events"
	cursorsCollection = "trigger_cursors"
	defaultDBName     = "fraternet"
)

// codeNamespaceNotFound: код ошибки MongoDB для отсутствующей коллекции.
const codeNamespaceNotFound = 26

// WatchedCollections: коллекции, изменения которых порождают уведомления.
var WatchedCollections = []string{UsersCollection, PostsCollection, EventsCollection}

// Mongo - тонкий адаптер для подключения и коллекций MongoDB.
type Mongo struct {
	cfg     *config.Config
	client  *mongodriver.Client
	db      *mongodriver.Database
	users   *mongodriver.Collection
	cursors *mongodriver.Collection
}

// New подключается к MongoDB, проверяет его, подготавливает коллекции и обеспечивает индексацию.
func New(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mongo: nil config")
	}

	if cfg.DB.URL == "" {
		return nil, fmt.Errorf("mongo: empty cfg.DB.URL")
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(cfg.DB.URL))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := cli.Database(databaseFromURI(cfg.DB.URL))

	m := &Mongo{
		cfg:     cfg,
		client:  cli,
		db:      db,
		users:   db.Collection(UsersCollection),
		cursors: db.Collection(cursorsCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		_ = m.Close(ctx)
		return nil, err
	}

	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Database отдаёт базу для подписки на change stream.
func (m *Mongo) Database() *mongodriver.Database {
	return m.db
}

// ensureIndexes создаёт индексы служебных коллекций.
// Профили читаются по _id и полным проходом, поэтому своих индексов у users нет.
// - trigger_cursors: updated_at для диагностики «застрявших» источников.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.cursors.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "updated_at", Value: -1}},
		Options: options.Index().SetName("updated_at_desc"),
	})
	if err != nil {
		return fmt.Errorf("mongo ensure indexes: %w", err)
	}

	return nil
}

// EnsurePreImages включает хранение pre-image документов для наблюдаемых коллекций,
// чтобы change stream отдавал состояние документа «до» обновления (MongoDB 6.0+).
// Отсутствующая коллекция создаётся сразу с включённой опцией.
func (m *Mongo) EnsurePreImages(ctx context.Context, collections ...string) error {
	const op = "storage/mongo/EnsurePreImages"

	enabled := bson.D{{Key: "enabled", Value: true}}

	for _, name := range collections {
		err := m.db.RunCommand(ctx, bson.D{
			{Key: "collMod", Value: name},
			{Key: "changeStreamPreAndPostImages", Value: enabled},
		}).Err()

		var cmdErr mongodriver.CommandError
		switch {
		case err == nil:
			continue
		case errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceNotFound:
			opts := options.CreateCollection().SetChangeStreamPreAndPostImages(enabled)
			if err := m.db.CreateCollection(ctx, name, opts); err != nil {
				return fmt.Errorf("%s: create %s: %w", op, name, err)
			}
		default:
			return fmt.Errorf("%s: collMod %s: %w", op, name, err)
		}
	}

	return nil
}

// databaseFromURI извлекает имя базы данных из URI-пути mongodb.
// Если оно отсутствует или не поддается расшифровке, возвращает значение по умолчанию.
func databaseFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return defaultDBName
}
