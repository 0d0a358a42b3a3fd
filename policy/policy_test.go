package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/blogicum/models"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func post(published bool, pubDate time.Time, category *models.Category) *models.Post {
	p := &models.Post{ID: 7, AuthorID: 1, PubDate: pubDate, Published: models.Published{IsPublished: published}}
	if category != nil {
		p.CategoryID = &category.ID
		p.Category = category
	}
	return p
}

func category(published bool) *models.Category {
	return &models.Category{ID: 3, Published: models.Published{IsPublished: published}}
}

func TestIsVisible(t *testing.T) {
	yesterday := now.Add(-24 * time.Hour)
	tests := []struct {
		name string
		post *models.Post
		want bool
	}{
		{"published without category", post(true, yesterday, nil), true},
		{"published in open category", post(true, yesterday, category(true)), true},
		{"hidden category", post(true, yesterday, category(false)), false},
		{"draft", post(false, yesterday, nil), false},
		{"scheduled", post(true, now.Add(time.Minute), nil), false},
		{"due exactly now", post(true, now, nil), true},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsVisible(tt.post, now))
		})
	}
}

func TestIsVisibleUnloadedCategory(t *testing.T) {
	p := post(true, now.Add(-time.Hour), nil)
	id := uint(9)
	p.CategoryID = &id
	assert.False(t, IsVisible(p, now))
}

func TestCanView(t *testing.T) {
	author := Requester{UserID: 1, Username: "author"}
	other := Requester{UserID: 2, Username: "other"}
	draft := post(false, now.Add(time.Hour), category(false))

	assert.True(t, CanView(author, draft, now))
	assert.False(t, CanView(other, draft, now))
	assert.False(t, CanView(Anonymous, draft, now))
	assert.True(t, CanView(other, post(true, now.Add(-time.Hour), nil), now))
}

func TestAuthorize(t *testing.T) {
	p := post(true, now, nil)
	comment := &models.Comment{AuthorID: 2}

	assert.Equal(t, Unauthenticated, Authorize(Anonymous, p))
	assert.Equal(t, Allow, Authorize(Requester{UserID: 1}, p))
	assert.Equal(t, Forbidden, Authorize(Requester{UserID: 2}, p))
	assert.Equal(t, Forbidden, Authorize(Requester{UserID: 2, Staff: true}, p))
	assert.Equal(t, Allow, Authorize(Requester{UserID: 2}, comment))
	assert.Equal(t, "forbidden", Forbidden.String())
}

func TestCanEditProfile(t *testing.T) {
	assert.Equal(t, Unauthenticated, CanEditProfile(Anonymous))
	assert.Equal(t, Allow, CanEditProfile(Requester{UserID: 4}))
}

func TestCanComment(t *testing.T) {
	assert.True(t, CanComment(post(false, now, nil)))
	assert.True(t, CanComment(post(true, now, category(true))))
	assert.False(t, CanComment(post(true, now, category(false))))
	assert.False(t, CanComment(nil))
}
