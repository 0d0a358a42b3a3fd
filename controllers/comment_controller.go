package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/utils"
)

type commentForm struct {
	Text string `form:"text" json:"text" binding:"required"`
}

// CommentController handles writes to a post's comments.
type CommentController struct {
	*Env
}

// NewCommentController creates a CommentController.
func NewCommentController(env *Env) *CommentController {
	return &CommentController{Env: env}
}

// Create adds a comment by the requester. The post must be reachable by the
// requester and its category must be published.
func (c *CommentController) Create(ctx *gin.Context) {
	requester := middleware.CurrentRequester(ctx)
	if !requester.Authenticated() {
		middleware.LoginRedirect(ctx, c.Config.LoginURL)
		return
	}
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "post")
		return
	}
	post, err := c.Store.GetPost(ctx.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) ||
		(err == nil && (!policy.CanView(requester, post, c.now()) || !policy.CanComment(post))) {
		notFound(ctx, "post")
		return
	}
	if err != nil {
		serverError(ctx, 50030, "failed to load post", err)
		return
	}

	var form commentForm
	errs := c.bindComment(ctx, &form)
	if errs != nil {
		c.render(ctx, http.StatusBadRequest, "blog/comment.html", gin.H{
			"form":   form,
			"errors": errs,
			"post":   post,
		})
		return
	}
	comment := models.Comment{
		Text:      utils.Sanitize(form.Text),
		AuthorID:  requester.UserID,
		PostID:    post.ID,
		Published: models.Visible(),
	}
	comment.CreatedAt = c.now()
	if err := c.Store.CreateComment(ctx.Request.Context(), &comment); err != nil {
		serverError(ctx, 50031, "failed to create comment", err)
		return
	}
	c.invalidateLists(ctx)
	ctx.Redirect(http.StatusFound, postURL(post.ID))
}

// Edit changes the text of the requester's own comment.
func (c *CommentController) Edit(ctx *gin.Context) {
	comment, ok := c.ownedComment(ctx)
	if !ok {
		return
	}
	if ctx.Request.Method == http.MethodGet {
		c.render(ctx, http.StatusOK, "blog/comment.html", gin.H{
			"form":    commentForm{Text: comment.Text},
			"comment": comment,
		})
		return
	}
	var form commentForm
	if errs := c.bindComment(ctx, &form); errs != nil {
		c.render(ctx, http.StatusBadRequest, "blog/comment.html", gin.H{
			"form":    form,
			"errors":  errs,
			"comment": comment,
		})
		return
	}
	comment.Text = utils.Sanitize(form.Text)
	if err := c.Store.UpdateComment(ctx.Request.Context(), comment); err != nil {
		serverError(ctx, 50032, "failed to update comment", err)
		return
	}
	ctx.Redirect(http.StatusFound, postURL(comment.PostID))
}

// Delete asks for confirmation (GET) and removes the comment (POST).
func (c *CommentController) Delete(ctx *gin.Context) {
	comment, ok := c.ownedComment(ctx)
	if !ok {
		return
	}
	if ctx.Request.Method == http.MethodGet {
		c.render(ctx, http.StatusOK, "blog/comment.html", gin.H{"comment": comment})
		return
	}
	if err := c.Store.DeleteComment(ctx.Request.Context(), comment.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		serverError(ctx, 50033, "failed to delete comment", err)
		return
	}
	c.invalidateLists(ctx)
	ctx.Redirect(http.StatusFound, postURL(comment.PostID))
}

func (c *CommentController) bindComment(ctx *gin.Context, form *commentForm) FieldErrors {
	if err := ctx.ShouldBind(form); err != nil {
		return bindErrors(err)
	}
	if strings.TrimSpace(form.Text) == "" {
		return FieldErrors{"text": "this field is required"}
	}
	return nil
}

// ownedComment resolves /posts/:id/.../:cid and checks authorship.
// On false the response has already been written.
func (c *CommentController) ownedComment(ctx *gin.Context) (*models.Comment, bool) {
	requester := middleware.CurrentRequester(ctx)
	if !requester.Authenticated() {
		middleware.LoginRedirect(ctx, c.Config.LoginURL)
		return nil, false
	}
	postID, ok := parseID(ctx.Param("id"))
	if !ok {
		notFound(ctx, "comment")
		return nil, false
	}
	commentID, ok := parseID(ctx.Param("cid"))
	if !ok {
		notFound(ctx, "comment")
		return nil, false
	}
	comment, err := c.Store.GetComment(ctx.Request.Context(), postID, commentID)
	if errors.Is(err, models.ErrNotFound) {
		notFound(ctx, "comment")
		return nil, false
	}
	if err != nil {
		serverError(ctx, 50034, "failed to load comment", err)
		return nil, false
	}
	if d := policy.Authorize(requester, comment); d != policy.Allow {
		c.deny(ctx, d, postURL(postID))
		return nil, false
	}
	return comment, true
}
