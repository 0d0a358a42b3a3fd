package query

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/blogicum/models"
)

// CommentsFor lists a post's comments oldest first with their authors.
// Hidden comments are only returned to their own author.
func CommentsFor(ctx context.Context, db *gorm.DB, postID, viewerID uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := db.WithContext(ctx).
		Where("post_id = ?", postID).
		Where("(is_published = ? OR author_id = ?)", true, viewerID).
		Preload("Author").
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
