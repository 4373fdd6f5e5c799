package triggers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fraternet/notify-service/internal/models"
	"github.com/fraternet/notify-service/pkg/log"
)

// Коллекции, на изменения которых реагирует сервис.
const (
	CollectionUsers  = "users"
	CollectionPosts  = "posts"
	CollectionEvents = "events"
)

// Notifier: обработчики уведомлений (реализует service.Service).
type Notifier interface {
	NotifyNewMember(ctx context.Context, userID string, user models.User)
	NotifyPostLiked(ctx context.Context, postID string, before, after models.Post)
	NotifyPostCommented(ctx context.Context, postID string, before, after models.Post)
	NotifyNewPost(ctx context.Context, postID string, post models.Post)
	NotifyNewEvent(ctx context.Context, eventID string, ev models.Event)
}

// Router направляет изменение нужному обработчику:
//   - users/created  -> NotifyNewMember;
//   - posts/created  -> NotifyNewPost;
//   - posts/updated  -> NotifyPostLiked, затем NotifyPostCommented;
//   - events/created -> NotifyNewEvent.
//
// Остальные изменения игнорируются.
type Router struct {
	n Notifier
}

// NewRouter создаёт роутер поверх обработчиков.
func NewRouter(n Notifier) *Router {
	return &Router{n: n}
}

// Handle разбирает снимки и вызывает обработчик. Ошибка: только ErrBadChange.
func (r *Router) Handle(ctx context.Context, ch Change) error {
	const op = "triggers/router/Handle"

	switch {
	case ch.Collection == CollectionUsers && ch.Kind == KindCreated:
		var u models.User
		if err := decode(ch.After, &u); err != nil {
			return fmt.Errorf("%s: users after: %w", op, err)
		}
		r.n.NotifyNewMember(ctx, ch.DocumentID, withUserID(u, ch.DocumentID))

	case ch.Collection == CollectionPosts && ch.Kind == KindCreated:
		var p models.Post
		if err := decode(ch.After, &p); err != nil {
			return fmt.Errorf("%s: posts after: %w", op, err)
		}
		r.n.NotifyNewPost(ctx, ch.DocumentID, withPostID(p, ch.DocumentID))

	case ch.Collection == CollectionPosts && ch.Kind == KindUpdated:
		var before, after models.Post
		if err := decode(ch.Before, &before); err != nil {
			return fmt.Errorf("%s: posts before: %w", op, err)
		}
		if err := decode(ch.After, &after); err != nil {
			return fmt.Errorf("%s: posts after: %w", op, err)
		}

		before, after = withPostID(before, ch.DocumentID), withPostID(after, ch.DocumentID)
		r.n.NotifyPostLiked(ctx, ch.DocumentID, before, after)
		r.n.NotifyPostCommented(ctx, ch.DocumentID, before, after)

	case ch.Collection == CollectionEvents && ch.Kind == KindCreated:
		var ev models.Event
		if err := decode(ch.After, &ev); err != nil {
			return fmt.Errorf("%s: events after: %w", op, err)
		}
		if ev.ID == "" {
			ev.ID = ch.DocumentID
		}
		r.n.NotifyNewEvent(ctx, ch.DocumentID, ev)

	default:
		log.From(ctx).Debug("change ignored",
			slog.String("collection", ch.Collection),
			slog.String("kind", string(ch.Kind)),
		)
	}

	return nil
}

// decode разбирает снимок; отсутствующий или битый снимок: ErrBadChange.
func decode(doc Document, v any) error {
	if doc == nil {
		return ErrBadChange
	}

	if err := doc.Decode(v); err != nil {
		if errors.Is(err, ErrBadChange) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrBadChange, err)
	}

	return nil
}

func withUserID(u models.User, id string) models.User {
	if u.ID == "" {
		u.ID = id
	}
	return u
}

func withPostID(p models.Post, id string) models.Post {
	if p.ID == "" {
		p.ID = id
	}
	return p
}
