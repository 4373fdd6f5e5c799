package service

import "time"

// dateTBA: подпись для мероприятия без даты.
const dateTBA = "a date to be announced"

// formatEventDate переводит дату мероприятия в часовой пояс сервиса и форматирует по шаблону.
func (s *Service) formatEventDate(t time.Time) string {
	if t.IsZero() {
		return dateTBA
	}

	return t.In(s.loc).Format(s.cfg.Events.DateLayout)
}
