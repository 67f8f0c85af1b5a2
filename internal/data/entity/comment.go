package entity

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID        uuid.UUID `db:"id"`
	ReviewID  uuid.UUID `db:"review_id"`
	AuthorID  uuid.UUID `db:"author_id"`
	Text      string    `db:"text"`
	PubDate   time.Time `db:"pub_date"`
	UpdatedAt time.Time `db:"updated_at"`

	// Populated on read
	AuthorUsername string `db:"author_username"`
}
