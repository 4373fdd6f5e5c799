// Package changestream: источник изменений на change stream MongoDB.
package changestream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fraternet/notify-service/internal/config"
	"github.com/fraternet/notify-service/internal/storage"
	"github.com/fraternet/notify-service/internal/triggers"
)

// cursorName: ключ resume token в хранилище курсоров.
const cursorName = config.SourceChangeStream

// Коды ошибок MongoDB, после которых продолжить с сохранённого токена нельзя.
const (
	codeInvalidResumeToken = 260
	codeHistoryLost        = 286
)

// BSONDocument: снимок документа из change stream.
type BSONDocument bson.Raw

// Decode разбирает BSON-снимок в v.
func (d BSONDocument) Decode(v any) error {
	if len(d) == 0 {
		return triggers.ErrBadChange
	}

	return bson.Unmarshal(d, v)
}

// stream: то, что нужно от *mongo.ChangeStream.
type stream interface {
	Next(ctx context.Context) bool
	Decode(v any) error
	ResumeToken() bson.Raw
	Err() error
	Close(ctx context.Context) error
}

type opener func(ctx context.Context, opts *options.ChangeStreamOptions) (stream, error)

// changeEvent: событие change stream (только нужные поля).
type changeEvent struct {
	ID            bson.Raw `bson:"_id"`
	OperationType string   `bson:"operationType"`
	NS            struct {
		Coll string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey struct {
		ID bson.RawValue `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument             bson.Raw `bson:"fullDocument"`
	FullDocumentBeforeChange bson.Raw `bson:"fullDocumentBeforeChange"`
}

// Watcher читает change stream базы и передаёт изменения обработчику.
// После каждого изменения сохраняет resume token; при обрыве переподключается через backoff.
type Watcher struct {
	open    opener
	cursors storage.Cursors
	handler triggers.Handler
	backoff time.Duration
	log     *slog.Logger
}

// New создаёт Watcher для коллекций collections базы db.
func New(db *mongodriver.Database, collections []string, cursors storage.Cursors,
	h triggers.Handler, backoff time.Duration, log *slog.Logger) *Watcher {
	p := pipeline(collections)

	open := func(ctx context.Context, opts *options.ChangeStreamOptions) (stream, error) {
		return db.Watch(ctx, p, opts)
	}

	return newWatcher(open, cursors, h, backoff, log)
}

func newWatcher(open opener, cursors storage.Cursors, h triggers.Handler, backoff time.Duration, log *slog.Logger) *Watcher {
	if log == nil {
		log = slog.Default()
	}
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	return &Watcher{
		open:    open,
		cursors: cursors,
		handler: h,
		backoff: backoff,
		log:     log.With(slog.String("source", config.SourceChangeStream)),
	}
}

// pipeline оставляет вставки и обновления наблюдаемых коллекций.
func pipeline(collections []string) mongodriver.Pipeline {
	return mongodriver.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace"}}}},
			{Key: "ns.coll", Value: bson.D{{Key: "$in", Value: collections}}},
		}}},
	}
}

// Run читает изменения до отмены ctx.
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info("change stream started")

	for {
		err := w.watch(ctx)
		if ctx.Err() != nil {
			w.log.Info("change stream stopped")
			return nil
		}

		w.log.Error("change stream interrupted",
			slog.Any("err", err),
			slog.Duration("backoff", w.backoff),
		)

		select {
		case <-ctx.Done():
			w.log.Info("change stream stopped")
			return nil
		case <-time.After(w.backoff):
		}
	}
}

// watch - одна сессия change stream: открыть, читать до ошибки, закрыть.
func (w *Watcher) watch(ctx context.Context) error {
	const op = "triggers/changestream/watch"

	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)

	token, err := w.cursors.ResumeToken(ctx, cursorName)
	switch {
	case err == nil:
		opts.SetResumeAfter(bson.Raw(token))
	case errors.Is(err, storage.ErrNotFound):
	default:
		return fmt.Errorf("%s: load resume token: %w", op, err)
	}

	cs, err := w.open(ctx, opts)
	if err != nil && opts.ResumeAfter != nil && resumeImpossible(err) {
		w.log.Warn("resume token rejected, starting from now", slog.Any("err", err))
		opts.ResumeAfter = nil
		cs, err = w.open(ctx, opts)
	}
	if err != nil {
		return fmt.Errorf("%s: open: %w", op, err)
	}
	defer func() { _ = cs.Close(context.Background()) }()

	for cs.Next(ctx) {
		var ev changeEvent
		if err := cs.Decode(&ev); err != nil {
			w.log.Error("change event decode failed", slog.Any("err", err))
		} else if ch, ok := toChange(ev); ok {
			// Ошибку обработчика уже залогировал Logging; изменение не повторяем.
			_ = w.handler(ctx, ch)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := w.cursors.SaveResumeToken(ctx, cursorName, cs.ResumeToken()); err != nil {
			w.log.Warn("resume token save failed", slog.Any("err", err))
		}
	}

	if err := cs.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return fmt.Errorf("%s: stream closed", op)
}

// toChange переводит событие change stream в Change. Неизвестные операции пропускаются.
func toChange(ev changeEvent) (triggers.Change, bool) {
	var kind triggers.Kind
	switch ev.OperationType {
	case "insert":
		kind = triggers.KindCreated
	case "update", "replace":
		kind = triggers.KindUpdated
	default:
		return triggers.Change{}, false
	}

	ch := triggers.Change{
		ID:         eventID(ev.ID),
		Source:     config.SourceChangeStream,
		Kind:       kind,
		Collection: ev.NS.Coll,
		DocumentID: documentID(ev.DocumentKey.ID),
	}
	if len(ev.FullDocumentBeforeChange) > 0 {
		ch.Before = BSONDocument(ev.FullDocumentBeforeChange)
	}
	if len(ev.FullDocument) > 0 {
		ch.After = BSONDocument(ev.FullDocument)
	}

	return ch, true
}

// eventID: строковое значение _data из resume token события.
func eventID(token bson.Raw) string {
	if len(token) == 0 {
		return ""
	}

	if s, ok := token.Lookup("_data").StringValueOK(); ok {
		return s
	}

	return fmt.Sprintf("%x", []byte(token))
}

// documentID приводит _id документа к строке: ObjectID в hex, строка как есть.
func documentID(v bson.RawValue) string {
	switch v.Type {
	case bson.TypeObjectID:
		return v.ObjectID().Hex()
	case bson.TypeString:
		return v.StringValue()
	case 0:
		return ""
	default:
		return v.String()
	}
}

func resumeImpossible(err error) bool {
	var cmdErr mongodriver.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}

	return cmdErr.Code == codeInvalidResumeToken || cmdErr.Code == codeHistoryLost
}
