package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/fraternet/notify-service/internal/messaging"
	"github.com/fraternet/notify-service/internal/models"
	"github.com/fraternet/notify-service/pkg/log"
)

// NotifyNewMember: создан профиль users/{id}.
// Без имени или фамилии ничего не делает; иначе одно уведомление на общий топик.
func (s *Service) NotifyNewMember(ctx context.Context, userID string, user models.User) {
	const op = "service/users/NotifyNewMember"

	ctx = log.With(ctx, slog.String("op", op), slog.String("user_id", userID))

	if strings.TrimSpace(user.FirstName) == "" || strings.TrimSpace(user.LastName) == "" {
		log.From(ctx).Info("skip: user without full name")
		return
	}

	s.send(ctx, messaging.Message{
		Kind:  messaging.KindNewMember,
		Topic: s.cfg.Messaging.BroadcastTopic,
		Notification: messaging.Notification{
			Title: "New member joined",
			Body:  user.DisplayName() + " just joined. Say hello!",
		},
		Data: map[string]string{
			"type":   string(messaging.KindNewMember),
			"userId": userID,
		},
	})
}
