package models

import "time"

// Published is the publication trait shared by every blog record.
// Embed it; IsPublished must be set explicitly since false is a meaningful value.
type Published struct {
	IsPublished bool      `gorm:"not null;index" json:"is_published"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// Visible returns a Published trait that is on.
func Visible() Published {
	return Published{IsPublished: true}
}
