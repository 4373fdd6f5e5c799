// Package models содержит документы хранилища, которые читает notify-service.
// Документы принадлежат клиентскому приложению: сервис их только читает.
package models

import "strings"

// User: профиль участника (коллекция users).
//   - ID совпадает с идентификатором документа;
//   - FCMToken пустой, пока клиент не зарегистрировался в FCM.
type User struct {
	ID        string `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName string `bson:"firstName"     json:"firstName"`
	LastName  string `bson:"lastName"      json:"lastName"`
	FCMToken  string `bson:"fcmToken"      json:"fcmToken,omitempty"`
}

// DisplayName склеивает имя и фамилию через пробел, пропуская пустые части.
func (u User) DisplayName() string {
	parts := make([]string, 0, 2)
	for _, p := range []string{u.FirstName, u.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	return strings.Join(parts, " ")
}

// HasToken сообщает, можно ли адресовать пользователю push.
func (u User) HasToken() bool {
	return strings.TrimSpace(u.FCMToken) != ""
}
