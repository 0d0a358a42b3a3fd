package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/query"
	"github.com/cppla/blogicum/store"
	"github.com/cppla/blogicum/utils"
)

type profileForm struct {
	Username  string `form:"username" json:"username" binding:"required,max=150"`
	FirstName string `form:"first_name" json:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" json:"last_name" binding:"max=150"`
	Email     string `form:"email" json:"email" binding:"omitempty,email,max=254"`
}

// ProfileController serves user profiles.
type ProfileController struct {
	*Env
}

// NewProfileController creates a ProfileController.
func NewProfileController(env *Env) *ProfileController {
	return &ProfileController{Env: env}
}

// Profile lists a user's posts. The owner sees drafts and scheduled posts too.
func (p *ProfileController) Profile(ctx *gin.Context) {
	user, err := p.Store.UserByUsername(ctx.Request.Context(), ctx.Param("username"))
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "user")
		return
	}
	if err != nil {
		serverError(ctx, 50040, "failed to load user", err)
		return
	}

	// Every post of the author is listed, drafts and scheduled ones included.
	posts := p.Store.Posts().ByAuthor(user.ID).WithRelated().WithCommentCounts().Latest()
	page, err := posts.Page(ctx.Request.Context(), utils.ParsePage(ctx.Query("page")), p.Config.PostsPerPage)
	if errors.Is(err, query.ErrPageOutOfRange) {
		notFound(ctx, "page")
		return
	}
	if err != nil {
		serverError(ctx, 50041, "failed to list posts", err)
		return
	}
	p.render(ctx, http.StatusOK, "blog/profile.html", gin.H{
		"profile":  user,
		"page_obj": page,
	})
}

// EditProfile updates the requester's own account.
func (p *ProfileController) EditProfile(ctx *gin.Context) {
	requester := middleware.CurrentRequester(ctx)
	if d := policy.CanEditProfile(requester); d != policy.Allow {
		p.deny(ctx, d, "/")
		return
	}
	user, err := p.Store.UserByID(ctx.Request.Context(), requester.UserID)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "user")
		return
	}
	if err != nil {
		serverError(ctx, 50042, "failed to load user", err)
		return
	}
	if ctx.Request.Method == http.MethodGet {
		p.render(ctx, http.StatusOK, "blog/user.html", gin.H{"form": profileForm{
			Username:  user.Username,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		}})
		return
	}

	var form profileForm
	if err := ctx.ShouldBind(&form); err != nil {
		p.render(ctx, http.StatusBadRequest, "blog/user.html", gin.H{"form": form, "errors": bindErrors(err)})
		return
	}
	form.Username = strings.TrimSpace(form.Username)
	if !validUsername(form.Username) {
		p.render(ctx, http.StatusBadRequest, "blog/user.html", gin.H{"form": form, "errors": FieldErrors{"username": usernameHelp}})
		return
	}

	if reservedRename(p.Config, user.Username, form.Username) {
		p.render(ctx, http.StatusBadRequest, "blog/user.html", gin.H{"form": form, "errors": FieldErrors{"username": "this username is reserved"}})
		return
	}

	oldUsername := user.Username
	user.Username = form.Username
	user.FirstName = strings.TrimSpace(form.FirstName)
	user.LastName = strings.TrimSpace(form.LastName)
	user.Email = strings.TrimSpace(form.Email)
	err = p.Store.UpdateProfile(ctx.Request.Context(), user)
	if errors.Is(err, store.ErrDuplicate) {
		p.render(ctx, http.StatusBadRequest, "blog/user.html", gin.H{"form": form, "errors": FieldErrors{"username": "a user with that username already exists"}})
		return
	}
	if err != nil {
		serverError(ctx, 50043, "failed to update profile", err)
		return
	}

	// Listings embed the author's name; the token carries it too.
	p.invalidateLists(ctx)
	if user.Username != oldUsername {
		if err := issueToken(ctx, p.Env, user); err != nil {
			serverError(ctx, 50044, "failed to generate token", err)
			return
		}
	}
	ctx.Redirect(http.StatusFound, profileURL(user.Username))
}
