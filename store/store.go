// Package store performs the blog's writes and single-record lookups.
// Multi-row effects of a delete (cascade to comments, nulling references to a
// category or location) happen inside one transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/query"
)

// ErrDuplicate is returned when a unique column (username, slug) is already taken.
var ErrDuplicate = errors.New("duplicate value")

// postColumns are the fields an author may change on a post.
var postColumns = []string{"title", "text", "pub_date", "image", "location_id", "category_id", "is_published"}

// Store wraps the gorm connection shared by all handlers.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the connection for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Posts starts a post listing.
func (s *Store) Posts() query.Posts {
	return query.NewPosts(s.db)
}

// Comments lists a post's comments for viewerID.
func (s *Store) Comments(ctx context.Context, postID, viewerID uint) ([]models.Comment, error) {
	return query.CommentsFor(ctx, s.db, postID, viewerID)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ErrNotFound
	}
	return err
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// NullableID turns an optional reference into a column value; nil becomes NULL.
func NullableID(id *uint) interface{} {
	if id == nil {
		return nil
	}
	return *id
}

// GetPost loads a post with its relations regardless of visibility.
func (s *Store) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.Posts().WithRelated().ByID(id).First(ctx)
}

// CreatePost inserts post; Author/Category/Location structs are never upserted.
func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error; err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// UpdatePost writes the editable columns of post. The author never changes.
func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	res := s.db.WithContext(ctx).Model(&models.Post{ID: post.ID}).
		Select(postColumns).
		Updates(map[string]interface{}{
			"title":        post.Title,
			"text":         post.Text,
			"pub_date":     post.PubDate,
			"image":        post.Image,
			"location_id":  NullableID(post.LocationID),
			"category_id":  NullableID(post.CategoryID),
			"is_published": post.IsPublished,
		})
	if err := affected(res); err != nil {
		return fmt.Errorf("update post %d: %w", post.ID, err)
	}
	return nil
}

// DeletePost removes a post and all of its comments.
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments of post %d: %w", id, err)
		}
		if err := affected(tx.Delete(&models.Post{}, id)); err != nil {
			return fmt.Errorf("delete post %d: %w", id, err)
		}
		return nil
	})
}

// NextScheduled returns the earliest pub_date after now among published
// posts. ok is false when nothing is scheduled.
func (s *Store) NextScheduled(ctx context.Context, now time.Time) (next time.Time, ok bool, err error) {
	var post models.Post
	err = s.db.WithContext(ctx).Select("pub_date").
		Where("is_published = ? AND pub_date > ?", true, now).
		Order("pub_date ASC").
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("next scheduled post: %w", err)
	}
	return post.PubDate, true, nil
}

// SetPostFlags is the staff moderation update.
func (s *Store) SetPostFlags(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&models.Post{ID: id}).Updates(fields)
	if err := affected(res); err != nil {
		return fmt.Errorf("update post %d: %w", id, err)
	}
	return nil
}

// GetComment loads a comment that belongs to postID.
func (s *Store) GetComment(ctx context.Context, postID, commentID uint) (*models.Comment, error) {
	var c models.Comment
	err := s.db.WithContext(ctx).Preload("Author").
		Where("id = ? AND post_id = ?", commentID, postID).
		Take(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// CreateComment inserts comment.
func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(comment).Error; err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// UpdateComment rewrites the comment text.
func (s *Store) UpdateComment(ctx context.Context, comment *models.Comment) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{ID: comment.ID}).Update("text", comment.Text)
	if err := affected(res); err != nil {
		return fmt.Errorf("update comment %d: %w", comment.ID, err)
	}
	return nil
}

// SetCommentPublished hides or shows a comment.
func (s *Store) SetCommentPublished(ctx context.Context, id uint, published bool) error {
	res := s.db.WithContext(ctx).Model(&models.Comment{ID: id}).Update("is_published", published)
	if err := affected(res); err != nil {
		return fmt.Errorf("update comment %d: %w", id, err)
	}
	return nil
}

// DeleteComment removes one comment.
func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	if err := affected(s.db.WithContext(ctx).Delete(&models.Comment{}, id)); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}
