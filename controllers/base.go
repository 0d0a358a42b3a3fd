package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/store"
	"github.com/cppla/blogicum/utils"
)

// listCachePrefix covers every cached index and category page.
const listCachePrefix = "cache:posts:list:"

// storeAll is the unfiltered catalog listing.
var storeAll = store.CatalogFilter{}

// Env carries what every controller needs.
type Env struct {
	Config    config.AppConfig
	Store     *store.Store
	Cache     *utils.Cache
	Blacklist *utils.TokenBlacklist
	Renderer  utils.Renderer
	// Now is the clock used for visibility checks; defaults to time.Now in UTC.
	Now func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Env) render(ctx *gin.Context, status int, view string, data gin.H) {
	r := e.Renderer
	if r == nil {
		r = utils.JSONRenderer{}
	}
	r.Render(ctx, status, view, data)
}

func (e *Env) invalidateLists(ctx *gin.Context) {
	e.Cache.InvalidateByPrefix(ctx.Request.Context(), listCachePrefix)
}

// deny turns a failed policy.Authorize into the matching redirect.
func (e *Env) deny(ctx *gin.Context, d policy.Decision, fallback string) {
	if d == policy.Unauthenticated {
		middleware.LoginRedirect(ctx, e.Config.LoginURL)
		return
	}
	ctx.Redirect(http.StatusFound, fallback)
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func notFound(ctx *gin.Context, what string) {
	utils.Error(ctx, http.StatusNotFound, 40400, what+" not found")
}

func serverError(ctx *gin.Context, code int, msg string, err error) {
	utils.Sugar.Errorw(msg, "path", ctx.Request.URL.Path, "error", err)
	utils.Error(ctx, http.StatusInternalServerError, code, msg)
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(formTagName)
	}
}

// formTagName reports validation failures under the form field name.
func formTagName(f reflect.StructField) string {
	for _, tag := range []string{"form", "json"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// FieldErrors maps form field names to a human readable message.
type FieldErrors map[string]string

func (f FieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// bindErrors converts a binding failure into per field messages.
func bindErrors(err error) FieldErrors {
	out := FieldErrors{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out.add("__all__", "invalid request payload")
		return out
	}
	for _, fe := range verrs {
		out.add(fieldName(fe), fieldMessage(fe))
	}
	return out
}

// fieldName relies on the tag name func registered in init.
func fieldName(fe validator.FieldError) string {
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	case "min":
		return "ensure this value has at least " + fe.Param() + " characters"
	case "email":
		return "enter a valid email address"
	case "eqfield":
		return "the two values do not match"
	default:
		return "invalid value"
	}
}
