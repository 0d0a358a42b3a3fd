package models

import "time"

// Post is a blog entry. PubDate in the future schedules the publication.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:256;not null" json:"title"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	PubDate    time.Time `gorm:"not null;index" json:"pub_date"`
	Image      string    `gorm:"size:512" json:"image"`
	AuthorID   uint      `gorm:"index;not null" json:"author_id"`
	Author     User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;" json:"author"`
	LocationID *uint     `gorm:"index" json:"location_id"`
	Location   *Location `gorm:"constraint:OnDelete:SET NULL;" json:"location"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:SET NULL;" json:"category"`
	Comments   []Comment `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
	Published

	// CommentCount is filled by query.Posts.WithCommentCounts and never written.
	CommentCount int64 `gorm:"->;-:migration" json:"comment_count"`
}

// OwnerID returns the author of the post.
func (p *Post) OwnerID() uint { return p.AuthorID }

// Comment is a reply to a post, listed oldest first.
type Comment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Text     string `gorm:"type:text;not null" json:"text"`
	AuthorID uint   `gorm:"index;not null" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE;" json:"author"`
	PostID   uint   `gorm:"index;not null" json:"post_id"`
	Published
}

// OwnerID returns the author of the comment.
func (c *Comment) OwnerID() uint { return c.AuthorID }

// All lists every model for migration, parents first.
func All() []interface{} {
	return []interface{}{&User{}, &Category{}, &Location{}, &Post{}, &Comment{}}
}
