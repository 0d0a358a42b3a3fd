package store

import (
	"context"
	"fmt"

	"github.com/cppla/blogicum/models"
)

// CreateUser inserts u; usernames are unique.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", u.Username).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return fmt.Errorf("username %q: %w", u.Username, ErrDuplicate)
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByUsername looks up a profile owner.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).Take(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UserByID looks up the user behind a token.
func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Take(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UpdateProfile writes the editable profile fields of u.
func (s *Store) UpdateProfile(ctx context.Context, u *models.User) error {
	var taken int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ? AND id <> ?", u.Username, u.ID).Count(&taken).Error; err != nil {
		return err
	}
	if taken > 0 {
		return fmt.Errorf("username %q: %w", u.Username, ErrDuplicate)
	}
	res := s.db.WithContext(ctx).Model(&models.User{ID: u.ID}).
		Select("username", "email", "first_name", "last_name").
		Updates(map[string]interface{}{
			"username":   u.Username,
			"email":      u.Email,
			"first_name": u.FirstName,
			"last_name":  u.LastName,
		})
	if err := affected(res); err != nil {
		return fmt.Errorf("update user %d: %w", u.ID, err)
	}
	return nil
}

// GrantStaff marks the accounts named in usernames as staff and returns how
// many rows changed. Existing staff accounts are left as they are.
func (s *Store) GrantStaff(ctx context.Context, usernames []string) (int64, error) {
	if len(usernames) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username IN ? AND is_staff = ?", usernames, false).
		Update("is_staff", true)
	if res.Error != nil {
		return 0, fmt.Errorf("grant staff: %w", res.Error)
	}
	return res.RowsAffected, nil
}
