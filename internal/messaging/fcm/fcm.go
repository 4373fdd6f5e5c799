// Package fcm: адаптер шлюза messaging.Gateway поверх Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbmsg "firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/fraternet/notify-service/internal/messaging"
)

// MaxMulticast: нативный лимит токенов в одном multicast-вызове FCM.
const MaxMulticast = 500

// sender: подмножество *messaging.Client, которое использует адаптер.
type sender interface {
	Send(ctx context.Context, message *fbmsg.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *fbmsg.MulticastMessage) (*fbmsg.BatchResponse, error)
}

// Gateway отправляет уведомления через FCM.
type Gateway struct {
	client sender
	limit  int
}

// New инициализирует Firebase App по project id и (опционально) файлу сервисного аккаунта.
// Без файла используются Application Default Credentials.
func New(ctx context.Context, projectID, credentialsFile string, limit int) (*Gateway, error) {
	const op = "messaging/fcm/New"

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: app: %w", op, err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: messaging client: %w", op, err)
	}

	return newGateway(client, limit), nil
}

func newGateway(client sender, limit int) *Gateway {
	if limit <= 0 || limit > MaxMulticast {
		limit = MaxMulticast
	}

	return &Gateway{client: client, limit: limit}
}

// Send отправляет сообщение по токену или топику.
func (g *Gateway) Send(ctx context.Context, msg messaging.Message) (string, error) {
	const op = "messaging/fcm/Send"

	if err := msg.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id, err := g.client.Send(ctx, &fbmsg.Message{
		Token:        msg.Token,
		Topic:        msg.Topic,
		Notification: notification(msg.Notification),
		Data:         msg.Data,
		APNS:         apns(),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// SendMulticast режет токены по лимиту и отправляет пачки последовательно.
// Ошибка транспорта прерывает отправку оставшихся пачек; недоставка отдельных
// токенов ошибкой не считается и отражается в BatchResult.
func (g *Gateway) SendMulticast(ctx context.Context, msg messaging.MulticastMessage) (*messaging.BatchResult, error) {
	const op = "messaging/fcm/SendMulticast"

	if len(msg.Tokens) == 0 {
		return nil, fmt.Errorf("%s: %w", op, messaging.ErrNoRecipients)
	}

	total := &messaging.BatchResult{}
	for _, batch := range messaging.Chunk(msg.Tokens, g.limit) {
		resp, err := g.client.SendEachForMulticast(ctx, &fbmsg.MulticastMessage{
			Tokens:       batch,
			Notification: notification(msg.Notification),
			Data:         msg.Data,
			APNS:         apns(),
		})
		if err != nil {
			return total, fmt.Errorf("%s: %w", op, err)
		}

		total.Merge(batchResult(batch, resp))
	}

	return total, nil
}

func notification(n messaging.Notification) *fbmsg.Notification {
	return &fbmsg.Notification{Title: n.Title, Body: n.Body}
}

// apns: звук по умолчанию для iOS-клиента.
func apns() *fbmsg.APNSConfig {
	return &fbmsg.APNSConfig{
		Payload: &fbmsg.APNSPayload{
			Aps: &fbmsg.Aps{Sound: "default"},
		},
	}
}

// batchResult сопоставляет ответы FCM с токенами: Responses идут в порядке Tokens.
func batchResult(tokens []string, resp *fbmsg.BatchResponse) *messaging.BatchResult {
	if resp == nil {
		return &messaging.BatchResult{}
	}

	res := &messaging.BatchResult{
		SuccessCount: resp.SuccessCount,
		FailureCount: resp.FailureCount,
	}

	for i, r := range resp.Responses {
		if r != nil && !r.Success && i < len(tokens) {
			res.FailedTokens = append(res.FailedTokens, tokens[i])
		}
	}

	return res
}
