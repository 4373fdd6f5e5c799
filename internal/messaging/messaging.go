// Package messaging описывает шлюз push-уведомлений и формы сообщений.
package messaging

import (
	"context"
	"errors"
)

var (
	// ErrNoRecipients: у сообщения нет ни токена, ни топика (или пустой список токенов).
	ErrNoRecipients = errors.New("no recipients")
)

// Kind: вид уведомления. Используется для логов и метрик, клиенту не отправляется.
type Kind string

const (
	KindNewMember      Kind = "newMember"
	KindLike           Kind = "like"
	KindComment        Kind = "comment"
	KindPriorCommenter Kind = "priorCommenter"
	KindMention        Kind = "mention"
	KindNewPost        Kind = "newPost"
	KindNewEvent       Kind = "newEvent"
)

// Notification: видимая часть push-уведомления.
type Notification struct {
	Title string
	Body  string
}

// Message: сообщение одному устройству (Token) или всем подписчикам топика (Topic).
// Ровно одно из полей Token/Topic должно быть заполнено.
// Data: данные для deep link на клиенте (type, userId/postId/eventId).
type Message struct {
	Kind         Kind
	Token        string
	Topic        string
	Notification Notification
	Data         map[string]string
}

// MulticastMessage: одно уведомление на набор токенов.
type MulticastMessage struct {
	Kind         Kind
	Tokens       []string
	Notification Notification
	Data         map[string]string
}

// BatchResult: итог multicast-отправки.
type BatchResult struct {
	SuccessCount int
	FailureCount int
	// FailedTokens: токены, на которые доставка не принята шлюзом.
	FailedTokens []string
}

// Gateway: внешний шлюз доставки push-уведомлений.
type Gateway interface {
	// Send отправляет сообщение по токену или топику и возвращает id, присвоенный шлюзом.
	Send(ctx context.Context, msg Message) (string, error)

	// SendMulticast отправляет одно уведомление на все токены.
	// Разбиение по нативному лимиту шлюза: забота реализации.
	SendMulticast(ctx context.Context, msg MulticastMessage) (*BatchResult, error)
}

// Validate проверяет адресацию сообщения.
func (m Message) Validate() error {
	if (m.Token == "") == (m.Topic == "") {
		return ErrNoRecipients
	}

	return nil
}

// Chunk режет tokens на пачки не длиннее limit, сохраняя порядок.
// limit <= 0 означает «без ограничения».
func Chunk(tokens []string, limit int) [][]string {
	if len(tokens) == 0 {
		return nil
	}

	if limit <= 0 || len(tokens) <= limit {
		return [][]string{tokens}
	}

	out := make([][]string, 0, (len(tokens)+limit-1)/limit)
	for start := 0; start < len(tokens); start += limit {
		end := min(start+limit, len(tokens))
		out = append(out, tokens[start:end])
	}

	return out
}

// Merge складывает результаты нескольких пачек.
func (r *BatchResult) Merge(other *BatchResult) {
	if other == nil {
		return
	}

	r.SuccessCount += other.SuccessCount
	r.FailureCount += other.FailureCount
	r.FailedTokens = append(r.FailedTokens, other.FailedTokens...)
}
