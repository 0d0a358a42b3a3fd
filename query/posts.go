// Package query composes read-only post listings.
//
// Posts is an immutable builder: every method returns a new value, so filters,
// annotations and ordering can be chained in any order and a partially built
// query can be reused as the base of several listings.
package query

import (
	"context"
	"errors"
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/blogicum/models"
)

const commentCountSelect = "posts.*, (SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count"

// Scope is a reusable gorm condition over the posts table.
type Scope = func(*gorm.DB) *gorm.DB

// Posts builds a post listing.
type Posts struct {
	db      *gorm.DB
	filters []Scope
	related bool
	counts  bool
	latest  bool
}

// NewPosts starts an unfiltered listing over db.
func NewPosts(db *gorm.DB) Posts {
	return Posts{db: db}
}

// Filter appends an arbitrary condition.
func (q Posts) Filter(s Scope) Posts {
	q.filters = append(slices.Clip(q.filters), s)
	return q
}

// Published keeps posts that are flagged published, whose category (if any) is
// published and whose pub date is not after now. Author, location and category
// are loaded with the result.
func (q Posts) Published(now time.Time) Posts {
	q = q.Filter(PublishedScope(now))
	q.related = true
	return q
}

// PublishedScope is the visibility predicate as a gorm scope.
func PublishedScope(now time.Time) Scope {
	return func(tx *gorm.DB) *gorm.DB {
		visibleCategories := tx.Session(&gorm.Session{NewDB: true}).
			Model(&models.Category{}).
			Select("id").
			Where("is_published = ?", true)
		return tx.Where("posts.is_published = ?", true).
			Where("posts.pub_date <= ?", now).
			Where("(posts.category_id IS NULL OR posts.category_id IN (?))", visibleCategories)
	}
}

// WithCommentCounts fills CommentCount without loading comment rows.
func (q Posts) WithCommentCounts() Posts {
	q.counts = true
	return q
}

// WithRelated loads author, location and category with every post.
func (q Posts) WithRelated() Posts {
	q.related = true
	return q
}

// Latest orders by pub date, newest first.
func (q Posts) Latest() Posts {
	q.latest = true
	return q
}

// ByID restricts the listing to a single post.
func (q Posts) ByID(id uint) Posts {
	return q.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.id = ?", id)
	})
}

// InCategory restricts the listing to one category.
func (q Posts) InCategory(categoryID uint) Posts {
	return q.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.category_id = ?", categoryID)
	})
}

// ByAuthor restricts the listing to one author.
func (q Posts) ByAuthor(authorID uint) Posts {
	return q.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.author_id = ?", authorID)
	})
}

// WithPublishedFlag matches the post's own flag only, ignoring category and date.
func (q Posts) WithPublishedFlag(published bool) Posts {
	return q.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("posts.is_published = ?", published)
	})
}

// Search matches term in title or text.
func (q Posts) Search(term string) Posts {
	like := "%" + term + "%"
	return q.Filter(func(tx *gorm.DB) *gorm.DB {
		return tx.Where("(posts.title LIKE ? OR posts.text LIKE ?)", like, like)
	})
}

func (q Posts) base(ctx context.Context) *gorm.DB {
	tx := q.db.WithContext(ctx).Model(&models.Post{})
	if len(q.filters) > 0 {
		tx = tx.Scopes(q.filters...)
	}
	return tx
}

func (q Posts) build(ctx context.Context) *gorm.DB {
	tx := q.base(ctx)
	if q.counts {
		tx = tx.Select(commentCountSelect)
	}
	if q.related {
		tx = tx.Preload("Author").Preload("Location").Preload("Category")
	}
	if q.latest {
		tx = tx.Order("posts.pub_date DESC").Order("posts.id DESC")
	}
	return tx
}

// Find returns every matching post.
func (q Posts) Find(ctx context.Context) ([]models.Post, error) {
	posts := []models.Post{}
	if err := q.build(ctx).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// First returns the first matching post or models.ErrNotFound.
func (q Posts) First(ctx context.Context) (*models.Post, error) {
	var post models.Post
	if err := q.build(ctx).Take(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Count returns the number of matching posts.
func (q Posts) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := q.base(ctx).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// Page returns the 1-based page of size items.
func (q Posts) Page(ctx context.Context, number, size int) (*Page[models.Post], error) {
	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}
	page, err := newPage[models.Post](number, size, total)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return page, nil
	}
	if err := q.build(ctx).Offset(page.offset()).Limit(size).Find(&page.Items).Error; err != nil {
		return nil, err
	}
	return page, nil
}
