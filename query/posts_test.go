package query_test

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/query"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := config.AppConfig{
		DBDriver:    "sqlite",
		DatabaseURI: filepath.Join(t.TempDir(), "blog.db") + "?_pragma=foreign_keys(1)",
		LogLevel:    "silent",
	}
	db, err := config.OpenDatabase(cfg, log.New(io.Discard, "", 0), models.All()...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db     *gorm.DB
	author models.User
	reader models.User
}

func newFixture(t *testing.T) *fixture {
	db := openTestDB(t)
	f := &fixture{db: db, author: models.User{Username: "author"}, reader: models.User{Username: "reader"}}
	require.NoError(t, db.Create(&f.author).Error)
	require.NoError(t, db.Create(&f.reader).Error)
	return f
}

func (f *fixture) category(t *testing.T, slug string, published bool) *models.Category {
	c := &models.Category{Title: slug, Description: slug, Slug: slug, Published: models.Published{IsPublished: published}}
	require.NoError(t, f.db.Create(c).Error)
	return c
}

func (f *fixture) post(t *testing.T, title string, published bool, pubDate time.Time, category *models.Category) *models.Post {
	p := &models.Post{
		Title:     title,
		Text:      "text of " + title,
		PubDate:   pubDate,
		AuthorID:  f.author.ID,
		Published: models.Published{IsPublished: published},
	}
	if category != nil {
		p.CategoryID = &category.ID
	}
	require.NoError(t, f.db.Omit(clause.Associations).Create(p).Error)
	return p
}

func (f *fixture) comment(t *testing.T, post *models.Post, published bool) {
	c := &models.Comment{Text: "hi", AuthorID: f.reader.ID, PostID: post.ID, Published: models.Published{IsPublished: published}}
	require.NoError(t, f.db.Omit(clause.Associations).Create(c).Error)
}

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestPublishedPredicate(t *testing.T) {
	f := newFixture(t)
	open := f.category(t, "open", true)
	hidden := f.category(t, "hidden", false)

	f.post(t, "no-category", true, now.Add(-24*time.Hour), nil)
	f.post(t, "open-category", true, now.Add(-time.Hour), open)
	f.post(t, "hidden-category", true, now.Add(-time.Hour), hidden)
	f.post(t, "draft", false, now.Add(-time.Hour), nil)
	f.post(t, "scheduled", true, now.Add(24*time.Hour), open)
	f.post(t, "exactly-now", true, now, nil)

	posts, err := query.NewPosts(f.db).Published(now).Latest().Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"exactly-now", "open-category", "no-category"}, titles(posts))

	for _, p := range posts {
		assert.Equal(t, "author", p.Author.Username, "author is preloaded")
	}
	assert.NotNil(t, posts[1].Category)
	assert.Equal(t, "open", posts[1].Category.Slug)
}

func TestPublishedInCategoryExcludesScheduled(t *testing.T) {
	f := newFixture(t)
	open := f.category(t, "open", true)
	f.post(t, "visible", true, now.Add(-time.Hour), open)
	f.post(t, "tomorrow", true, now.Add(24*time.Hour), open)
	f.post(t, "elsewhere", true, now.Add(-time.Hour), nil)

	posts, err := query.NewPosts(f.db).Published(now).InCategory(open.ID).Find(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"visible"}, titles(posts))
}

func TestWithCommentCounts(t *testing.T) {
	f := newFixture(t)
	busy := f.post(t, "busy", true, now.Add(-2*time.Hour), nil)
	f.post(t, "quiet", true, now.Add(-time.Hour), nil)
	f.comment(t, busy, true)
	f.comment(t, busy, true)
	f.comment(t, busy, false)

	posts, err := query.NewPosts(f.db).Published(now).WithCommentCounts().Latest().Find(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "quiet", posts[0].Title)
	assert.Equal(t, int64(0), posts[0].CommentCount)
	assert.Equal(t, "busy", posts[1].Title)
	assert.Equal(t, int64(3), posts[1].CommentCount)
}

func TestBuilderOrderDoesNotMatter(t *testing.T) {
	f := newFixture(t)
	post := f.post(t, "one", true, now.Add(-time.Hour), nil)
	f.comment(t, post, true)
	ctx := context.Background()

	a, err := query.NewPosts(f.db).Published(now).WithCommentCounts().First(ctx)
	require.NoError(t, err)
	b, err := query.NewPosts(f.db).WithCommentCounts().Published(now).First(ctx)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, a.CommentCount, b.CommentCount)
	assert.Equal(t, int64(1), b.CommentCount)
}

func TestBuilderIsImmutable(t *testing.T) {
	f := newFixture(t)
	f.post(t, "a", true, now.Add(-time.Hour), nil)
	f.post(t, "b", false, now.Add(-time.Hour), nil)
	ctx := context.Background()

	base := query.NewPosts(f.db).Latest()
	published := base.Published(now)

	all, err := base.Count(ctx)
	require.NoError(t, err)
	visible, err := published.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all)
	assert.Equal(t, int64(1), visible)
}

func TestFirstNotFound(t *testing.T) {
	f := newFixture(t)
	draft := f.post(t, "draft", false, now.Add(-time.Hour), nil)

	_, err := query.NewPosts(f.db).Published(now).ByID(draft.ID).First(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := query.NewPosts(f.db).ByID(draft.ID).First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Title)
}

func TestPage(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.post(t, string(rune('a'+i)), true, now.Add(-time.Duration(i+1)*time.Hour), nil)
	}
	ctx := context.Background()
	q := query.NewPosts(f.db).Published(now).WithCommentCounts().Latest()

	first, err := q.Page(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, titles(first.Items))
	assert.Equal(t, 3, first.NumPages)
	assert.Equal(t, int64(5), first.Total)
	assert.True(t, first.HasNext)
	assert.False(t, first.HasPrevious)

	last, err := q.Page(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, titles(last.Items))
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrevious)

	_, err = q.Page(ctx, 4, 2)
	assert.ErrorIs(t, err, query.ErrPageOutOfRange)
}

func TestEmptyFirstPage(t *testing.T) {
	f := newFixture(t)
	page, err := query.NewPosts(f.db).Published(now).Page(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.NumPages)
}

func TestCommentsFor(t *testing.T) {
	f := newFixture(t)
	post := f.post(t, "p", true, now.Add(-time.Hour), nil)
	f.comment(t, post, true)
	f.comment(t, post, false)
	ctx := context.Background()

	anon, err := query.CommentsFor(ctx, f.db, post.ID, 0)
	require.NoError(t, err)
	assert.Len(t, anon, 1)

	own, err := query.CommentsFor(ctx, f.db, post.ID, f.reader.ID)
	require.NoError(t, err)
	require.Len(t, own, 2)
	assert.Equal(t, "reader", own[0].Author.Username)
	assert.True(t, own[0].ID < own[1].ID)
}
