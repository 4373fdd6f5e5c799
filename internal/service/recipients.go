package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/fraternet/notify-service/internal/storage"
	"github.com/fraternet/notify-service/pkg/log"
)

// someone: имя по умолчанию, если профиль не найден или без имени.
const someone = "Someone"

// lookup читает профиль; промах и ошибка хранилища одинаково дают nil.
func (s *Service) lookup(ctx context.Context, id string) (string, string, bool) {
	const op = "service/recipients/lookup"

	if strings.TrimSpace(id) == "" {
		return "", "", false
	}

	u, err := s.users.UserByID(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.From(ctx).Warn("user lookup failed",
				slog.String("op", op),
				slog.String("user_id", id),
				slog.String("err", err.Error()),
			)
		}

		return "", "", false
	}

	return u.DisplayName(), strings.TrimSpace(u.FCMToken), true
}

// tokenFor возвращает push-токен пользователя или "".
func (s *Service) tokenFor(ctx context.Context, id string) string {
	_, token, _ := s.lookup(ctx, id)
	return token
}

// tokensFor разрешает токены для ids, пропуская пользователей без токена.
func (s *Service) tokensFor(ctx context.Context, ids []string) []string {
	var out []string
	for _, id := range ids {
		if token := s.tokenFor(ctx, id); token != "" {
			out = append(out, token)
		}
	}

	return uniqueTokens(out)
}

// nameFor возвращает отображаемое имя пользователя или "Someone".
func (s *Service) nameFor(ctx context.Context, id string) string {
	if name, _, ok := s.lookup(ctx, id); ok && name != "" {
		return name
	}

	return someone
}

// broadcastTokens проходит по всем пользователям и собирает токены, кроме exclude и пользователей без токена.
func (s *Service) broadcastTokens(ctx context.Context, exclude string) ([]string, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(users))
	for _, u := range users {
		if u.ID == exclude || !u.HasToken() {
			continue
		}

		out = append(out, strings.TrimSpace(u.FCMToken))
	}

	return uniqueTokens(out), nil
}

// uniqueTokens убирает повторы (один девайс под несколькими аккаунтами), сохраняя порядок.
// Переписывает tokens на месте: передавать только свежесобранный срез.
func uniqueTokens(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}

	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}

		seen[t] = struct{}{}
		out = append(out, t)
	}

	return out
}
