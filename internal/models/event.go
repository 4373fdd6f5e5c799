package models

import "time"

// Event: мероприятие (коллекция events).
type Event struct {
	ID          string    `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string    `bson:"title"         json:"title"`
	CreatorID   string    `bson:"creatorId"     json:"creatorId"`
	Date        time.Time `bson:"date"          json:"date"`
	Location    string    `bson:"location"      json:"location"`
	Description string    `bson:"description"   json:"description,omitempty"`
}
