package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/utils"
)

var pubDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// postForm is the create/edit form; the author is never part of it.
type postForm struct {
	Title       string `form:"title" json:"title" binding:"required,max=256"`
	Text        string `form:"text" json:"text" binding:"required"`
	PubDate     string `form:"pub_date" json:"pub_date"`
	LocationID  *uint  `form:"location" json:"location"`
	CategoryID  *uint  `form:"category" json:"category"`
	IsPublished *bool  `form:"is_published" json:"is_published"`
	ClearImage  bool   `form:"image-clear" json:"image_clear"`
}

func formFromPost(p *models.Post) postForm {
	published := p.IsPublished
	return postForm{
		Title:       p.Title,
		Text:        p.Text,
		PubDate:     p.PubDate.UTC().Format(time.RFC3339),
		LocationID:  p.LocationID,
		CategoryID:  p.CategoryID,
		IsPublished: &published,
	}
}

func parsePubDate(raw string, now time.Time) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now, true
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func optionalID(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}

// apply validates the form against the database and copies it onto post.
// New posts default to published; an edit without the flag keeps it.
func (e *Env) apply(ctx context.Context, form postForm, post *models.Post) FieldErrors {
	errs := FieldErrors{}
	title := strings.TrimSpace(form.Title)
	if title == "" {
		errs.add("title", "this field is required")
	}
	pubDate, ok := parsePubDate(form.PubDate, e.now())
	if !ok {
		errs.add("pub_date", "enter a valid date/time")
	}
	categoryID := optionalID(form.CategoryID)
	if categoryID != nil {
		if _, err := e.Store.GetCategory(ctx, *categoryID); err != nil {
			errs.add("category", "select a valid choice")
		}
	}
	locationID := optionalID(form.LocationID)
	if locationID != nil {
		if _, err := e.Store.GetLocation(ctx, *locationID); err != nil {
			errs.add("location", "select a valid choice")
		}
	}
	if len(errs) > 0 {
		return errs
	}

	post.Title = utils.Sanitize(title)
	post.Text = utils.Sanitize(form.Text)
	post.PubDate = pubDate
	post.CategoryID = categoryID
	post.LocationID = locationID
	switch {
	case form.IsPublished != nil:
		post.IsPublished = *form.IsPublished
	case post.ID == 0:
		post.IsPublished = true
	}
	if form.ClearImage {
		post.Image = ""
	}
	return nil
}

// saveUpload stores the optional "image" file; an absent file is not an error.
func (e *Env) saveUpload(ctx *gin.Context, post *models.Post) FieldErrors {
	header, err := ctx.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil
		}
		return FieldErrors{"image": "upload a valid image"}
	}
	url, err := utils.SaveImage(header, e.Config.MediaRoot, "posts", "/media", int64(e.Config.MaxUploadMB)<<20)
	switch {
	case errors.Is(err, utils.ErrUploadTooLarge):
		return FieldErrors{"image": "file is too large"}
	case errors.Is(err, utils.ErrUploadType):
		return FieldErrors{"image": "upload a valid image"}
	case err != nil:
		utils.Sugar.Errorw("image upload failed", "error", err)
		return FieldErrors{"image": "could not store the file"}
	}
	post.Image = url
	return nil
}

// formChoices lists categories and locations for the post form.
func (e *Env) formChoices(ctx *gin.Context, data gin.H) gin.H {
	if cats, err := e.Store.ListCategories(ctx.Request.Context(), storeAll); err == nil {
		data["categories"] = cats
	}
	if locs, err := e.Store.ListLocations(ctx.Request.Context(), storeAll); err == nil {
		data["locations"] = locs
	}
	return data
}
