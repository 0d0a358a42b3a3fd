// Package policy decides who may see and change blog records.
//
// Read visibility never distinguishes "missing" from "hidden": callers turn a
// false CanView into the same not-found response as an absent record.
package policy

import (
	"time"

	"github.com/cppla/blogicum/models"
)

// Requester is the identity behind a request. The zero value is anonymous.
type Requester struct {
	UserID   uint
	Username string
	Staff    bool
}

// Anonymous is the requester of unauthenticated requests.
var Anonymous = Requester{}

// Authenticated reports whether the request carries a valid identity.
func (r Requester) Authenticated() bool {
	return r.UserID != 0
}

// Is reports whether r is the user with id userID.
func (r Requester) Is(userID uint) bool {
	return r.Authenticated() && r.UserID == userID
}

// Owned is implemented by records that have an author.
type Owned interface {
	OwnerID() uint
}

// Decision is the outcome of a write authorization check.
type Decision int

const (
	// Allow lets the write proceed.
	Allow Decision = iota
	// Unauthenticated asks the requester to log in first.
	Unauthenticated
	// Forbidden sends the requester back to the object's public page.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}

// IsVisible mirrors query.PublishedScope for a post loaded with its category.
func IsVisible(post *models.Post, now time.Time) bool {
	if post == nil || !post.IsPublished {
		return false
	}
	if !categoryOpen(post) {
		return false
	}
	return !post.PubDate.After(now)
}

// CanView lets authors preview their own posts; everyone else needs IsVisible.
func CanView(r Requester, post *models.Post, now time.Time) bool {
	if post == nil {
		return false
	}
	if r.Is(post.AuthorID) {
		return true
	}
	return IsVisible(post, now)
}

// Authorize allows edits and deletes by the record's author only.
func Authorize(r Requester, obj Owned) Decision {
	if !r.Authenticated() {
		return Unauthenticated
	}
	if obj == nil || !r.Is(obj.OwnerID()) {
		return Forbidden
	}
	return Allow
}

// CanEditProfile applies to the requester's own profile, the only one reachable.
func CanEditProfile(r Requester) Decision {
	if !r.Authenticated() {
		return Unauthenticated
	}
	return Allow
}

// CanComment gates new comments on the post's category being published.
// The post's own flag is not consulted here; reaching the post is CanView's job.
func CanComment(post *models.Post) bool {
	if post == nil {
		return false
	}
	return categoryOpen(post)
}

// categoryOpen treats a set but unloaded category as closed.
func categoryOpen(post *models.Post) bool {
	if post.CategoryID == nil {
		return true
	}
	return post.Category != nil && post.Category.IsPublished
}
