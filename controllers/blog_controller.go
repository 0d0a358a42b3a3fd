package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/query"
	"github.com/cppla/blogicum/utils"
)

// BlogController serves the post listings, the post page and post writes.
type BlogController struct {
	*Env
}

// NewBlogController creates a BlogController.
func NewBlogController(env *Env) *BlogController {
	return &BlogController{Env: env}
}

// Index lists every visible post, newest first.
func (b *BlogController) Index(ctx *gin.Context) {
	number := utils.ParsePage(ctx.Query("page"))
	key := fmt.Sprintf("%sindex:page=%d", listCachePrefix, number)

	page, ok := b.cachedPage(ctx, key)
	if !ok {
		var err error
		page, err = b.Store.Posts().
			Published(b.now()).
			WithCommentCounts().
			Latest().
			Page(ctx.Request.Context(), number, b.Config.PostsPerPage)
		if errors.Is(err, query.ErrPageOutOfRange) {
			notFound(ctx, "page")
			return
		}
		if err != nil {
			serverError(ctx, 50010, "failed to list posts", err)
			return
		}
		b.cachePage(ctx, key, page)
	}
	b.render(ctx, http.StatusOK, "blog/index.html", gin.H{"page_obj": page})
}

// CategoryPosts lists the visible posts of a published category.
func (b *BlogController) CategoryPosts(ctx *gin.Context) {
	slug := ctx.Param("slug")
	category, err := b.Store.PublishedCategoryBySlug(ctx.Request.Context(), slug)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "category")
		return
	}
	if err != nil {
		serverError(ctx, 50011, "failed to load category", err)
		return
	}

	number := utils.ParsePage(ctx.Query("page"))
	key := fmt.Sprintf("%scategory=%s:page=%d", listCachePrefix, slug, number)
	page, ok := b.cachedPage(ctx, key)
	if !ok {
		page, err = b.Store.Posts().
			Published(b.now()).
			InCategory(category.ID).
			WithCommentCounts().
			Latest().
			Page(ctx.Request.Context(), number, b.Config.PostsPerPage)
		if errors.Is(err, query.ErrPageOutOfRange) {
			notFound(ctx, "page")
			return
		}
		if err != nil {
			serverError(ctx, 50012, "failed to list posts", err)
			return
		}
		b.cachePage(ctx, key, page)
	}
	b.render(ctx, http.StatusOK, "blog/category.html", gin.H{
		"category": category,
		"page_obj": page,
	})
}

// cachedListing is a cached listing page. Until is the pub_date of the next
// scheduled post; the page is stale from that moment on.
type cachedListing struct {
	Page  *query.Page[models.Post] `json:"page"`
	Until *time.Time               `json:"until,omitempty"`
}

func (b *BlogController) cachedPage(ctx *gin.Context, key string) (*query.Page[models.Post], bool) {
	raw, ok := b.Cache.GetBytes(ctx.Request.Context(), key)
	if !ok {
		return nil, false
	}
	var entry cachedListing
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Page == nil {
		utils.Sugar.Debugf("dropping unreadable cache entry key=%s err=%v", key, err)
		return nil, false
	}
	if entry.Until != nil && !b.now().Before(*entry.Until) {
		return nil, false
	}
	return entry.Page, true
}

// cachePage stores page until the cache TTL runs out or the next scheduled
// post becomes due, whichever comes first.
func (b *BlogController) cachePage(ctx *gin.Context, key string, page *query.Page[models.Post]) {
	ttl := b.Cache.TTL()
	if ttl <= 0 {
		return
	}
	now := b.now()
	entry := cachedListing{Page: page}
	next, ok, err := b.Store.NextScheduled(ctx.Request.Context(), now)
	if err != nil {
		utils.Sugar.Warnf("listing not cached key=%s err=%v", key, err)
		return
	}
	if ok {
		due := next.Sub(now)
		if due < time.Second {
			return
		}
		ttl = min(ttl, due)
		entry.Until = &next
	}
	b.Cache.SetJSONFor(ctx.Request.Context(), key, entry, ttl)
}

// PostDetail shows one post with its comments. Authors see their drafts;
// everyone else gets 404 for posts that are not visible.
func (b *BlogController) PostDetail(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "post")
		return
	}
	requester := middleware.CurrentRequester(ctx)
	post, err := b.Store.Posts().WithRelated().WithCommentCounts().ByID(id).First(ctx.Request.Context())
	if errors.Is(err, models.ErrNotFound) || (err == nil && !policy.CanView(requester, post, b.now())) {
		notFound(ctx, "post")
		return
	}
	if err != nil {
		serverError(ctx, 50013, "failed to load post", err)
		return
	}

	comments, err := b.Store.Comments(ctx.Request.Context(), post.ID, requester.UserID)
	if err != nil {
		serverError(ctx, 50014, "failed to load comments", err)
		return
	}
	html, err := utils.RenderMarkdown(post.Text)
	if err != nil {
		html = utils.Sanitize(post.Text)
	}
	b.render(ctx, http.StatusOK, "blog/detail.html", gin.H{
		"post":        post,
		"text_html":   html,
		"comments":    comments,
		"form":        commentForm{},
		"can_comment": requester.Authenticated() && policy.CanComment(post),
	})
}

// CreatePost renders the empty form (GET) or creates a post by the requester (POST).
func (b *BlogController) CreatePost(ctx *gin.Context) {
	requester := middleware.CurrentRequester(ctx)
	if !requester.Authenticated() {
		middleware.LoginRedirect(ctx, b.Config.LoginURL)
		return
	}
	if ctx.Request.Method == http.MethodGet {
		published := true
		b.render(ctx, http.StatusOK, "blog/create.html", b.formChoices(ctx, gin.H{
			"form": postForm{IsPublished: &published},
		}))
		return
	}

	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		b.invalidPostForm(ctx, form, bindErrors(err))
		return
	}
	post := models.Post{AuthorID: requester.UserID}
	if errs := b.apply(ctx.Request.Context(), form, &post); errs != nil {
		b.invalidPostForm(ctx, form, errs)
		return
	}
	if errs := b.saveUpload(ctx, &post); errs != nil {
		b.invalidPostForm(ctx, form, errs)
		return
	}
	post.CreatedAt = b.now()
	if err := b.Store.CreatePost(ctx.Request.Context(), &post); err != nil {
		serverError(ctx, 50020, "failed to create post", err)
		return
	}
	b.invalidateLists(ctx)
	utils.Sugar.Infow("post created", "post_id", post.ID, "author_id", post.AuthorID)
	ctx.Redirect(http.StatusFound, profileURL(requester.Username))
}

// EditPost lets the author change a post; others are sent back to the post page.
func (b *BlogController) EditPost(ctx *gin.Context) {
	post, ok := b.ownedPost(ctx)
	if !ok {
		return
	}
	if ctx.Request.Method == http.MethodGet {
		b.render(ctx, http.StatusOK, "blog/create.html", b.formChoices(ctx, gin.H{
			"form": formFromPost(post),
			"post": post,
		}))
		return
	}

	var form postForm
	if err := ctx.ShouldBind(&form); err != nil {
		b.invalidPostForm(ctx, form, bindErrors(err))
		return
	}
	if errs := b.apply(ctx.Request.Context(), form, post); errs != nil {
		b.invalidPostForm(ctx, form, errs)
		return
	}
	if errs := b.saveUpload(ctx, post); errs != nil {
		b.invalidPostForm(ctx, form, errs)
		return
	}
	if err := b.Store.UpdatePost(ctx.Request.Context(), post); err != nil {
		serverError(ctx, 50021, "failed to update post", err)
		return
	}
	b.invalidateLists(ctx)
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

// DeletePost asks for confirmation (GET) and removes the post with its comments (POST).
func (b *BlogController) DeletePost(ctx *gin.Context) {
	post, ok := b.ownedPost(ctx)
	if !ok {
		return
	}
	if ctx.Request.Method == http.MethodGet {
		b.render(ctx, http.StatusOK, "blog/create.html", gin.H{
			"form": formFromPost(post),
			"post": post,
		})
		return
	}
	if err := b.Store.DeletePost(ctx.Request.Context(), post.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		serverError(ctx, 50022, "failed to delete post", err)
		return
	}
	b.invalidateLists(ctx)
	utils.Sugar.Infow("post deleted", "post_id", post.ID)
	ctx.Redirect(http.StatusFound, profileURL(middleware.CurrentRequester(ctx).Username))
}

// ownedPost loads the post named in the URL and checks the requester wrote it.
// On false the response has already been written.
func (b *BlogController) ownedPost(ctx *gin.Context) (*models.Post, bool) {
	requester := middleware.CurrentRequester(ctx)
	if !requester.Authenticated() {
		middleware.LoginRedirect(ctx, b.Config.LoginURL)
		return nil, false
	}
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "post")
		return nil, false
	}
	post, err := b.Store.GetPost(ctx.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "post")
		return nil, false
	}
	if err != nil {
		serverError(ctx, 50023, "failed to load post", err)
		return nil, false
	}
	if d := policy.Authorize(requester, post); d != policy.Allow {
		b.deny(ctx, d, postURL(post.ID))
		return nil, false
	}
	return post, true
}

func (b *BlogController) invalidPostForm(ctx *gin.Context, form postForm, errs FieldErrors) {
	data := gin.H{"form": form, "errors": errs}
	if id, ok := parseID(ctx.Param("id")); ok {
		data["post_id"] = id
	}
	b.render(ctx, http.StatusBadRequest, "blog/create.html", b.formChoices(ctx, data))
}
