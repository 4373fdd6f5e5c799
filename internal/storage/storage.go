package storage

import (
	"context"
	"errors"

	"github.com/fraternet/notify-service/internal/models"
)

var (
	// ErrNotFound: сущность отсутствует в хранилище.
	ErrNotFound = errors.New("not found")
)

// Users описывает чтение профилей участников.
type Users interface {
	// UserByID возвращает профиль по идентификатору документа.
	// Если запись не найдена: ErrNotFound.
	UserByID(ctx context.Context, id string) (*models.User, error)

	// ListUsers возвращает всех участников (полный проход коллекции).
	ListUsers(ctx context.Context) ([]models.User, error)
}

// Cursors хранит позицию чтения источника изменений (resume token change stream).
type Cursors interface {
	// ResumeToken возвращает сохранённый токен источника name.
	// Если токена нет: ErrNotFound.
	ResumeToken(ctx context.Context, name string) ([]byte, error)

	// SaveResumeToken сохраняет (upsert) токен источника name.
	SaveResumeToken(ctx context.Context, name string, token []byte) error
}
