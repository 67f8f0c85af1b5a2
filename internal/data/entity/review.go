package entity

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID        uuid.UUID `db:"id"`
	TitleID   uuid.UUID `db:"title_id"`
	AuthorID  uuid.UUID `db:"author_id"`
	Text      string    `db:"text"`
	Score     int       `db:"score"` // 1-10
	PubDate   time.Time `db:"pub_date"`
	UpdatedAt time.Time `db:"updated_at"`

	// Populated on read
	AuthorUsername string `db:"author_username"`
	TitleName      string `db:"title_name"`
}
