// Package triggers превращает изменения документов из разных источников в вызовы обработчиков уведомлений.
package triggers

import (
	"bytes"
	"encoding/json"
	"errors"
)

var (
	// ErrBadChange: изменение нельзя разобрать или в нём нет нужного снимка.
	ErrBadChange = errors.New("bad change")
	// ErrPanic: обработчик упал с panic (перехвачено Recover).
	ErrPanic = errors.New("handler panic")
)

// Kind: вид изменения документа.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindDeleted Kind = "deleted"
)

// Valid сообщает, известен ли вид изменения.
func (k Kind) Valid() bool {
	switch k {
	case KindCreated, KindUpdated, KindDeleted:
		return true
	}

	return false
}

// Document: снимок документа в формате источника.
type Document interface {
	Decode(v any) error
}

// JSONDocument: снимок, пришедший в JSON (NATS, HTTP, Firestore-событие после конвертации).
type JSONDocument json.RawMessage

// Decode разбирает JSON-снимок в v.
func (d JSONDocument) Decode(v any) error {
	if isNull(d) {
		return ErrBadChange
	}

	return json.Unmarshal(d, v)
}

func isNull(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// Change: одно изменение документа коллекции.
//   - ID: идентификатор изменения у источника (для дедупликации повторных доставок), может быть пустым;
//   - Before: снимок до изменения (только для updated/deleted, может отсутствовать);
//   - After: снимок после изменения (для created/updated).
type Change struct {
	ID         string
	Source     string
	Kind       Kind
	Collection string
	DocumentID string
	Before     Document
	After      Document
}
