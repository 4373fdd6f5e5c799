package service

import "github.com/fraternet/notify-service/internal/models"

// newLiker возвращает первый id из after, которого нет в before.
// При нескольких новых лайках между снимками находится только первый.
func newLiker(before, after []string) (string, bool) {
	seen := make(map[string]struct{}, len(before))
	for _, id := range before {
		seen[id] = struct{}{}
	}

	for _, id := range after {
		if _, ok := seen[id]; !ok {
			return id, true
		}
	}

	return "", false
}

// newComment возвращает первый комментарий из after, чей id отсутствует в before.
func newComment(before, after []models.Comment) (models.Comment, bool) {
	seen := make(map[string]struct{}, len(before))
	for _, c := range before {
		seen[c.ID] = struct{}{}
	}

	for _, c := range after {
		if _, ok := seen[c.ID]; !ok {
			return c, true
		}
	}

	return models.Comment{}, false
}

// priorCommenters: различные авторы комментариев из before в порядке первого появления,
// без автора публикации и без нового комментатора.
func priorCommenters(before []models.Comment, postAuthorID, commenterID string) []string {
	seen := map[string]struct{}{
		postAuthorID: {},
		commenterID:  {},
	}

	var out []string
	for _, c := range before {
		if c.AuthorID == "" {
			continue
		}

		if _, ok := seen[c.AuthorID]; ok {
			continue
		}

		seen[c.AuthorID] = struct{}{}
		out = append(out, c.AuthorID)
	}

	return out
}
