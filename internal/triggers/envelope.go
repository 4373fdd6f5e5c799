package triggers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// envelope: JSON-представление изменения, которое публикуют мосты из внешнего хранилища
// (NATS, POST /v1/changes):
//
//	{"id": "...", "kind": "updated", "collection": "posts", "documentId": "p1",
//	 "before": {...}, "after": {...}}
type envelope struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Collection string          `json:"collection"`
	DocumentID string          `json:"documentId"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// DecodeEnvelope разбирает JSON-конверт изменения. Любая ошибка: ErrBadChange.
func DecodeEnvelope(data []byte) (Change, error) {
	const op = "triggers/envelope/DecodeEnvelope"

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Change{}, fmt.Errorf("%s: %w: %v", op, ErrBadChange, err)
	}

	ch := Change{
		ID:         strings.TrimSpace(env.ID),
		Kind:       Kind(strings.ToLower(strings.TrimSpace(string(env.Kind)))),
		Collection: strings.TrimSpace(env.Collection),
		DocumentID: strings.TrimSpace(env.DocumentID),
		Before:     jsonDocument(env.Before),
		After:      jsonDocument(env.After),
	}

	if err := validate(ch); err != nil {
		return Change{}, fmt.Errorf("%s: %w", op, err)
	}

	return ch, nil
}

// validate: обязательные поля изменения.
func validate(ch Change) error {
	switch {
	case !ch.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", ErrBadChange, ch.Kind)
	case ch.Collection == "":
		return fmt.Errorf("%w: empty collection", ErrBadChange)
	case ch.DocumentID == "":
		return fmt.Errorf("%w: empty document id", ErrBadChange)
	}

	return nil
}

// jsonDocument превращает сырой JSON в Document; пустой или null снимок: nil.
func jsonDocument(raw json.RawMessage) Document {
	if isNull(raw) {
		return nil
	}

	return JSONDocument(raw)
}
