package models

// Category groups posts under a URL slug. Hidden categories hide their posts.
type Category struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:256;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	Slug        string `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	Published
}

// Location is an optional place attached to a post.
type Location struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:256;not null;index" json:"name"`
	Published
}
