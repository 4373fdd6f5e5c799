package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fraternet/notify-service/internal/messaging"
	"github.com/fraternet/notify-service/internal/models"
	"github.com/fraternet/notify-service/pkg/log"
)

// NotifyNewEvent: создано мероприятие events/{id}.
// Без названия: no-op без единого обращения к хранилищу.
func (s *Service) NotifyNewEvent(ctx context.Context, eventID string, ev models.Event) {
	const op = "service/events/NotifyNewEvent"

	ctx = log.With(ctx, slog.String("op", op), slog.String("event_id", eventID))
	lg := log.From(ctx)

	title := strings.TrimSpace(ev.Title)
	if title == "" {
		lg.Info("skip: event without title")
		return
	}

	creator := s.nameFor(ctx, ev.CreatorID)
	when := s.formatEventDate(ev.Date)

	tokens, err := s.broadcastTokens(ctx, ev.CreatorID)
	if err != nil {
		lg.Error("list users failed", slog.String("err", err.Error()))
		return
	}

	if len(tokens) == 0 {
		lg.Debug("skip: no recipients")
		return
	}

	body := fmt.Sprintf("%s scheduled %s on %s", creator, title, when)
	if loc := strings.TrimSpace(ev.Location); loc != "" {
		body += " at " + loc
	}

	s.multicast(ctx, messaging.MulticastMessage{
		Kind:   messaging.KindNewEvent,
		Tokens: tokens,
		Notification: messaging.Notification{
			Title: "New Event: " + title,
			Body:  body,
		},
		Data: map[string]string{
			"type":    string(messaging.KindNewEvent),
			"eventId": eventID,
		},
	})
}
