//go:build integration

package store

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/models"
)

func TestPostgresStore(t *testing.T) {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "blog",
			"POSTGRES_PASSWORD": "blog",
			"POSTGRES_DB":       "blogicum",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.AppConfig{
		DBDriver:   "postgres",
		DBHost:     host,
		DBPort:     port.Port(),
		DBUser:     "blog",
		DBPassword: "blog",
		DBName:     "blogicum",
		DBSSLMode:  "disable",
		LogLevel:   "silent",
	}
	db, err := config.OpenDatabase(cfg, log.New(io.Discard, "", 0), models.All()...)
	require.NoError(t, err)
	s := New(db)

	author := &models.User{Username: "author"}
	require.NoError(t, s.CreateUser(ctx, author))
	hidden := &models.Category{Title: "Hidden", Slug: "hidden"}
	require.NoError(t, s.SaveCategory(ctx, hidden))

	now := time.Now().UTC()
	visible := &models.Post{Title: "visible", Text: "t", PubDate: now.Add(-time.Hour), AuthorID: author.ID, Published: models.Visible()}
	require.NoError(t, s.CreatePost(ctx, visible))
	inHidden := &models.Post{Title: "in hidden", Text: "t", PubDate: now.Add(-time.Hour), AuthorID: author.ID, CategoryID: &hidden.ID, Published: models.Visible()}
	require.NoError(t, s.CreatePost(ctx, inHidden))
	require.NoError(t, s.CreateComment(ctx, &models.Comment{Text: "c", AuthorID: author.ID, PostID: visible.ID, Published: models.Visible()}))

	t.Run("published listing with counts", func(t *testing.T) {
		posts, err := s.Posts().Published(now).WithCommentCounts().Latest().Find(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "visible", posts[0].Title)
		assert.Equal(t, int64(1), posts[0].CommentCount)
	})

	t.Run("category delete nulls posts", func(t *testing.T) {
		require.NoError(t, s.DeleteCategory(ctx, hidden.ID))
		got, err := s.GetPost(ctx, inHidden.ID)
		require.NoError(t, err)
		assert.Nil(t, got.CategoryID)
	})

	t.Run("post delete cascades", func(t *testing.T) {
		require.NoError(t, s.DeletePost(ctx, visible.ID))
		comments, err := s.Comments(ctx, visible.ID, author.ID)
		require.NoError(t, err)
		assert.Empty(t, comments)
	})
}
