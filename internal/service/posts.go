package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fraternet/notify-service/internal/messaging"
	"github.com/fraternet/notify-service/internal/models"
	"github.com/fraternet/notify-service/pkg/log"
)

// NotifyPostLiked уведомляет автора публикации posts/{id} о новом лайке.
//
// No-op, если:
//   - число лайков не выросло;
//   - новый лайк не найден разницей множеств;
//   - автор лайкнул сам себя;
//   - у автора нет токена.
func (s *Service) NotifyPostLiked(ctx context.Context, postID string, before, after models.Post) {
	const op = "service/posts/NotifyPostLiked"

	ctx = log.With(ctx, slog.String("op", op), slog.String("post_id", postID))
	lg := log.From(ctx)

	if len(after.Likes) <= len(before.Likes) {
		return
	}

	liker, ok := newLiker(before.Likes, after.Likes)
	if !ok {
		lg.Debug("skip: no new liker")
		return
	}

	if liker == after.AuthorID {
		lg.Debug("skip: self like")
		return
	}

	token := s.tokenFor(ctx, after.AuthorID)
	if token == "" {
		lg.Info("skip: author has no token", slog.String("author_id", after.AuthorID))
		return
	}

	s.send(ctx, messaging.Message{
		Kind:  messaging.KindLike,
		Token: token,
		Notification: messaging.Notification{
			Title: "New Like",
			Body:  s.nameFor(ctx, liker) + " liked your post",
		},
	})
}

// NotifyPostCommented рассылает уведомления о новом комментарии к публикации posts/{id}.
//
// Шаги независимы, сбой одного не отменяет остальные:
//  1. автору публикации (кроме комментария самого автора);
//  2. одним multicast: прежним комментаторам, кроме автора и нового комментатора;
//  3. каждому упомянутому, кроме комментатора и автора публикации.
func (s *Service) NotifyPostCommented(ctx context.Context, postID string, before, after models.Post) {
	const op = "service/posts/NotifyPostCommented"

	ctx = log.With(ctx, slog.String("op", op), slog.String("post_id", postID))
	lg := log.From(ctx)

	if len(after.Comments) <= len(before.Comments) {
		return
	}

	comment, ok := newComment(before.Comments, after.Comments)
	if !ok {
		lg.Debug("skip: no new comment")
		return
	}

	ctx = log.With(ctx, slog.String("comment_id", comment.ID), slog.String("commenter_id", comment.AuthorID))

	commenter := strings.TrimSpace(comment.AuthorName)
	if commenter == "" {
		commenter = s.nameFor(ctx, comment.AuthorID)
	}

	// 1. Автор публикации.
	if comment.AuthorID != after.AuthorID {
		if token := s.tokenFor(ctx, after.AuthorID); token != "" {
			s.send(ctx, messaging.Message{
				Kind:  messaging.KindComment,
				Token: token,
				Notification: messaging.Notification{
					Title: "New Comment",
					Body:  commenter + " commented on your post",
				},
			})
		}
	}

	// 2. Прежние комментаторы.
	if ids := priorCommenters(before.Comments, after.AuthorID, comment.AuthorID); len(ids) > 0 {
		if tokens := s.tokensFor(ctx, ids); len(tokens) > 0 {
			s.multicast(ctx, messaging.MulticastMessage{
				Kind:   messaging.KindPriorCommenter,
				Tokens: tokens,
				Notification: messaging.Notification{
					Title: "New Comment",
					Body:  commenter + " commented on the same post",
				},
			})
		}
	}

	// 3. Упоминания.
	for _, m := range comment.Mentions {
		if m.UserID == "" || m.UserID == comment.AuthorID || m.UserID == after.AuthorID {
			continue
		}

		token := s.tokenFor(ctx, m.UserID)
		if token == "" {
			continue
		}

		s.send(ctx, messaging.Message{
			Kind:  messaging.KindMention,
			Token: token,
			Notification: messaging.Notification{
				Title: commenter + " mentioned you",
				Body:  comment.Content,
			},
			Data: map[string]string{
				"type":   string(messaging.KindMention),
				"postId": postID,
			},
		})
	}
}

// NotifyNewPost: создана публикация posts/{id}, один multicast всем, кроме автора.
func (s *Service) NotifyNewPost(ctx context.Context, postID string, post models.Post) {
	const op = "service/posts/NotifyNewPost"

	ctx = log.With(ctx, slog.String("op", op), slog.String("post_id", postID))
	lg := log.From(ctx)

	tokens, err := s.broadcastTokens(ctx, post.AuthorID)
	if err != nil {
		lg.Error("list users failed", slog.String("err", err.Error()))
		return
	}

	if len(tokens) == 0 {
		lg.Debug("skip: no recipients")
		return
	}

	author := strings.TrimSpace(post.AuthorName)
	if author == "" {
		author = s.nameFor(ctx, post.AuthorID)
	}

	s.multicast(ctx, messaging.MulticastMessage{
		Kind:   messaging.KindNewPost,
		Tokens: tokens,
		Notification: messaging.Notification{
			Title: "New Post",
			Body:  author + " just posted something new!",
		},
	})
}
