package models

import "time"

// Post: публикация (коллекция posts).
// Likes: множество идентификаторов лайкнувших, порядок не важен.
// Comments: комментарии в порядке добавления.
type Post struct {
	ID         string    `bson:"_id,omitempty" json:"id,omitempty"`
	AuthorID   string    `bson:"authorId"      json:"authorId"`
	AuthorName string    `bson:"authorName"    json:"authorName,omitempty"`
	Content    string    `bson:"content"       json:"content,omitempty"`
	Likes      []string  `bson:"likes"         json:"likes"`
	Comments   []Comment `bson:"comments"      json:"comments"`
	Timestamp  time.Time `bson:"timestamp"     json:"timestamp"`
}

// Comment: комментарий внутри документа публикации.
type Comment struct {
	ID         string    `bson:"id"         json:"id"`
	AuthorID   string    `bson:"authorId"   json:"authorId"`
	AuthorName string    `bson:"authorName" json:"authorName"`
	Content    string    `bson:"content"    json:"content"`
	Mentions   []Mention `bson:"mentions"   json:"mentions,omitempty"`
	Timestamp  time.Time `bson:"timestamp"  json:"timestamp"`
}

// Mention: упоминание пользователя в тексте комментария.
// Range: смещение и длина упоминания в тексте (в символах UTF-16 клиента).
type Mention struct {
	ID          string       `bson:"id"          json:"id"`
	UserID      string       `bson:"userId"      json:"userId"`
	DisplayName string       `bson:"displayName" json:"displayName"`
	Range       MentionRange `bson:"range"       json:"range"`
}

// MentionRange: диапазон упоминания.
type MentionRange struct {
	Location int `bson:"location" json:"location"`
	Length   int `bson:"length"   json:"length"`
}
