package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/query"
	"github.com/cppla/blogicum/store"
	"github.com/cppla/blogicum/utils"
)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// AdminController is the staff JSON API for moderating blog records.
type AdminController struct {
	*Env
}

// NewAdminController creates an AdminController.
func NewAdminController(env *Env) *AdminController {
	return &AdminController{Env: env}
}

func catalogFilter(ctx *gin.Context) store.CatalogFilter {
	f := store.CatalogFilter{Search: strings.TrimSpace(ctx.Query("search"))}
	if raw := ctx.Query("is_published"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			f.Published = &v
		}
	}
	return f
}

// ListCategories supports ?search= and ?is_published=.
func (a *AdminController) ListCategories(ctx *gin.Context) {
	items, err := a.Store.ListCategories(ctx.Request.Context(), catalogFilter(ctx))
	if err != nil {
		serverError(ctx, 50050, "failed to list categories", err)
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

type categoryRequest struct {
	Title       *string `json:"title" binding:"omitempty,max=256"`
	Description *string `json:"description"`
	Slug        *string `json:"slug" binding:"omitempty,max=64"`
	IsPublished *bool   `json:"is_published"`
}

// CreateCategory adds a category; new categories are published unless stated otherwise.
func (a *AdminController) CreateCategory(ctx *gin.Context) {
	category := models.Category{Published: models.Visible()}
	a.saveCategory(ctx, &category, http.StatusCreated)
}

// UpdateCategory applies a partial update.
func (a *AdminController) UpdateCategory(ctx *gin.Context) {
	category, ok := a.loadCategory(ctx)
	if !ok {
		return
	}
	a.saveCategory(ctx, category, http.StatusOK)
}

func (a *AdminController) saveCategory(ctx *gin.Context, category *models.Category, status int) {
	var req categoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Respond(ctx, http.StatusBadRequest, 40050, "invalid request payload", bindErrors(err))
		return
	}
	if req.Title != nil {
		category.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		category.Description = utils.Sanitize(*req.Description)
	}
	if req.Slug != nil {
		category.Slug = strings.TrimSpace(*req.Slug)
	}
	if req.IsPublished != nil {
		category.IsPublished = *req.IsPublished
	}

	errs := FieldErrors{}
	if category.Title == "" {
		errs.add("title", "this field is required")
	}
	if !slugPattern.MatchString(category.Slug) {
		errs.add("slug", "letters, digits, hyphens and underscores only")
	}
	if len(errs) > 0 {
		utils.Respond(ctx, http.StatusBadRequest, 40051, "invalid category", errs)
		return
	}

	err := a.Store.SaveCategory(ctx.Request.Context(), category)
	if errors.Is(err, store.ErrDuplicate) {
		utils.Error(ctx, http.StatusConflict, 40950, "slug already exists")
		return
	}
	if err != nil {
		serverError(ctx, 50051, "failed to save category", err)
		return
	}
	a.invalidateLists(ctx)
	utils.Respond(ctx, status, 0, "success", gin.H{"category": category})
}

// DeleteCategory removes a category; its posts lose their category.
func (a *AdminController) DeleteCategory(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "category")
		return
	}
	err := a.Store.DeleteCategory(ctx.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "category")
		return
	}
	if err != nil {
		serverError(ctx, 50052, "failed to delete category", err)
		return
	}
	a.invalidateLists(ctx)
	utils.Success(ctx, gin.H{"deleted": id})
}

func (a *AdminController) loadCategory(ctx *gin.Context) (*models.Category, bool) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "category")
		return nil, false
	}
	category, err := a.Store.GetCategory(ctx.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "category")
		return nil, false
	}
	if err != nil {
		serverError(ctx, 50053, "failed to load category", err)
		return nil, false
	}
	return category, true
}

// ListLocations supports ?search= and ?is_published=.
func (a *AdminController) ListLocations(ctx *gin.Context) {
	items, err := a.Store.ListLocations(ctx.Request.Context(), catalogFilter(ctx))
	if err != nil {
		serverError(ctx, 50060, "failed to list locations", err)
		return
	}
	utils.Success(ctx, gin.H{"items": items})
}

type locationRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=256"`
	IsPublished *bool   `json:"is_published"`
}

// CreateLocation adds a location.
func (a *AdminController) CreateLocation(ctx *gin.Context) {
	location := models.Location{Published: models.Visible()}
	a.saveLocation(ctx, &location, http.StatusCreated)
}

// UpdateLocation applies a partial update.
func (a *AdminController) UpdateLocation(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "location")
		return
	}
	location, err := a.Store.GetLocation(ctx.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "location")
		return
	}
	if err != nil {
		serverError(ctx, 50061, "failed to load location", err)
		return
	}
	a.saveLocation(ctx, location, http.StatusOK)
}

func (a *AdminController) saveLocation(ctx *gin.Context, location *models.Location, status int) {
	var req locationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Respond(ctx, http.StatusBadRequest, 40060, "invalid request payload", bindErrors(err))
		return
	}
	if req.Name != nil {
		location.Name = strings.TrimSpace(*req.Name)
	}
	if req.IsPublished != nil {
		location.IsPublished = *req.IsPublished
	}
	if location.Name == "" {
		utils.Respond(ctx, http.StatusBadRequest, 40061, "invalid location", FieldErrors{"name": "this field is required"})
		return
	}
	if err := a.Store.SaveLocation(ctx.Request.Context(), location); err != nil {
		serverError(ctx, 50062, "failed to save location", err)
		return
	}
	a.invalidateLists(ctx)
	utils.Respond(ctx, status, 0, "success", gin.H{"location": location})
}

// DeleteLocation removes a location; its posts lose their location.
func (a *AdminController) DeleteLocation(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "location")
		return
	}
	err := a.Store.DeleteLocation(ctx.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "location")
		return
	}
	if err != nil {
		serverError(ctx, 50063, "failed to delete location", err)
		return
	}
	a.invalidateLists(ctx)
	utils.Success(ctx, gin.H{"deleted": id})
}

// ListPosts pages through every post regardless of visibility.
// Filters: ?search=, ?is_published=, ?category=<id>.
func (a *AdminController) ListPosts(ctx *gin.Context) {
	posts := a.Store.Posts().WithRelated().WithCommentCounts().Latest()
	if term := strings.TrimSpace(ctx.Query("search")); term != "" {
		posts = posts.Search(term)
	}
	if raw := ctx.Query("is_published"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			posts = posts.WithPublishedFlag(v)
		}
	}
	if id, ok := parseID(ctx.Query("category")); ok {
		posts = posts.InCategory(id)
	}
	if id, ok := parseID(ctx.Query("author")); ok {
		posts = posts.ByAuthor(id)
	}
	page, err := posts.Page(ctx.Request.Context(), utils.ParsePage(ctx.Query("page")), a.Config.PostsPerPage)
	if errors.Is(err, query.ErrPageOutOfRange) {
		notFound(ctx, "page")
		return
	}
	if err != nil {
		serverError(ctx, 50070, "failed to list posts", err)
		return
	}
	utils.Success(ctx, gin.H{"page": page})
}

type postModeration struct {
	IsPublished *bool `json:"is_published"`
	// 0 clears the reference.
	CategoryID *uint `json:"category_id"`
	LocationID *uint `json:"location_id"`
}

// ModeratePost changes a post's flag, category or location.
func (a *AdminController) ModeratePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "post")
		return
	}
	var req postModeration
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid request payload")
		return
	}
	fields := map[string]interface{}{}
	if req.IsPublished != nil {
		fields["is_published"] = *req.IsPublished
	}
	if req.CategoryID != nil {
		categoryID := optionalID(req.CategoryID)
		if categoryID != nil {
			if _, err := a.Store.GetCategory(ctx.Request.Context(), *categoryID); err != nil {
				utils.Respond(ctx, http.StatusBadRequest, 40071, "invalid post", FieldErrors{"category_id": "select a valid choice"})
				return
			}
		}
		fields["category_id"] = store.NullableID(categoryID)
	}
	if req.LocationID != nil {
		locationID := optionalID(req.LocationID)
		if locationID != nil {
			if _, err := a.Store.GetLocation(ctx.Request.Context(), *locationID); err != nil {
				utils.Respond(ctx, http.StatusBadRequest, 40071, "invalid post", FieldErrors{"location_id": "select a valid choice"})
				return
			}
		}
		fields["location_id"] = store.NullableID(locationID)
	}
	if len(fields) == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40072, "nothing to update")
		return
	}

	err := a.Store.SetPostFlags(ctx.Request.Context(), id, fields)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "post")
		return
	}
	if err != nil {
		serverError(ctx, 50071, "failed to update post", err)
		return
	}
	a.invalidateLists(ctx)
	post, err := a.Store.GetPost(ctx.Request.Context(), id)
	if err != nil {
		serverError(ctx, 50072, "failed to load post", err)
		return
	}
	utils.Success(ctx, gin.H{"post": post})
}

// ModerateComment hides or shows a comment.
func (a *AdminController) ModerateComment(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "comment")
		return
	}
	var req struct {
		IsPublished *bool `json:"is_published" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40080, "invalid request payload")
		return
	}
	err := a.Store.SetCommentPublished(ctx.Request.Context(), id, *req.IsPublished)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "comment")
		return
	}
	if err != nil {
		serverError(ctx, 50080, "failed to update comment", err)
		return
	}
	utils.Success(ctx, gin.H{"id": id, "is_published": *req.IsPublished})
}

// DeleteComment removes any comment.
func (a *AdminController) DeleteComment(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "comment")
		return
	}
	err := a.Store.DeleteComment(ctx.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "comment")
		return
	}
	if err != nil {
		serverError(ctx, 50081, "failed to delete comment", err)
		return
	}
	a.invalidateLists(ctx)
	utils.Success(ctx, gin.H{"deleted": id})
}
