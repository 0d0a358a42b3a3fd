package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/blogicum/models"
)

// CatalogFilter narrows the staff listings of categories and locations.
type CatalogFilter struct {
	Search    string
	Published *bool
}

func (f CatalogFilter) apply(tx *gorm.DB, columns ...string) *gorm.DB {
	if f.Search != "" {
		like := "%" + f.Search + "%"
		cond := tx.Session(&gorm.Session{NewDB: true})
		for i, col := range columns {
			if i == 0 {
				cond = cond.Where(col+" LIKE ?", like)
			} else {
				cond = cond.Or(col+" LIKE ?", like)
			}
		}
		tx = tx.Where(cond)
	}
	if f.Published != nil {
		tx = tx.Where("is_published = ?", *f.Published)
	}
	return tx
}

// ListCategories returns categories for the staff screens, newest first.
func (s *Store) ListCategories(ctx context.Context, f CatalogFilter) ([]models.Category, error) {
	out := []models.Category{}
	tx := f.apply(s.db.WithContext(ctx), "title", "description", "slug")
	if err := tx.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetCategory loads a category by id.
func (s *Store) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var c models.Category
	if err := s.db.WithContext(ctx).Take(&c, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// PublishedCategoryBySlug resolves a listing's category; hidden ones are not found.
func (s *Store) PublishedCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var c models.Category
	err := s.db.WithContext(ctx).
		Where("slug = ? AND is_published = ?", slug, true).
		Take(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// SaveCategory inserts or updates a category.
func (s *Store) SaveCategory(ctx context.Context, c *models.Category) error {
	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("slug = ? AND id <> ?", c.Slug, c.ID).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return fmt.Errorf("category slug %q: %w", c.Slug, ErrDuplicate)
	}
	if err := s.db.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("save category: %w", err)
	}
	return nil
}

// DeleteCategory removes a category; its posts stay with no category.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("category_id = ?", id).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach posts from category %d: %w", id, err)
		}
		if err := affected(tx.Delete(&models.Category{}, id)); err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		return nil
	})
}

// ListLocations returns locations for the staff screens and the post form.
func (s *Store) ListLocations(ctx context.Context, f CatalogFilter) ([]models.Location, error) {
	out := []models.Location{}
	tx := f.apply(s.db.WithContext(ctx), "name")
	if err := tx.Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetLocation loads a location by id.
func (s *Store) GetLocation(ctx context.Context, id uint) (*models.Location, error) {
	var l models.Location
	if err := s.db.WithContext(ctx).Take(&l, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// SaveLocation inserts or updates a location.
func (s *Store) SaveLocation(ctx context.Context, l *models.Location) error {
	if err := s.db.WithContext(ctx).Save(l).Error; err != nil {
		return fmt.Errorf("save location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location; its posts stay with no location.
func (s *Store) DeleteLocation(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Post{}).Where("location_id = ?", id).
			Update("location_id", nil).Error; err != nil {
			return fmt.Errorf("detach posts from location %d: %w", id, err)
		}
		if err := affected(tx.Delete(&models.Location{}, id)); err != nil {
			return fmt.Errorf("delete location %d: %w", id, err)
		}
		return nil
	})
}
