package controllers

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/middleware"
	"github.com/cppla/blogicum/models"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/store"
	"github.com/cppla/blogicum/utils"
)

const usernameHelp = "150 characters or fewer; letters, digits and @/./+/-/_ only"

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

func validUsername(s string) bool {
	return len([]rune(s)) <= 150 && usernamePattern.MatchString(s)
}

// reservedRename reports whether renaming from to moves an account into or
// out of the configured staff names.
func reservedRename(cfg config.AppConfig, from, to string) bool {
	if strings.EqualFold(from, to) {
		return false
	}
	return cfg.IsAdmin(from) || cfg.IsAdmin(to)
}

// AuthController handles registration, login and logout.
type AuthController struct {
	*Env
}

// NewAuthController creates an AuthController.
func NewAuthController(env *Env) *AuthController {
	return &AuthController{Env: env}
}

type registerForm struct {
	Username  string `form:"username" json:"username" binding:"required,max=150"`
	Email     string `form:"email" json:"email" binding:"omitempty,email,max=254"`
	FirstName string `form:"first_name" json:"first_name" binding:"max=150"`
	LastName  string `form:"last_name" json:"last_name" binding:"max=150"`
	Password  string `form:"password1" json:"password1" binding:"required"`
	Confirm   string `form:"password2" json:"password2" binding:"required,eqfield=Password"`
}

type loginForm struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

// Register shows (GET) and processes (POST) the sign up form.
func (a *AuthController) Register(ctx *gin.Context) {
	if ctx.Request.Method == http.MethodGet {
		a.render(ctx, http.StatusOK, "registration/registration_form.html", gin.H{"form": registerForm{}})
		return
	}

	var form registerForm
	if err := ctx.ShouldBind(&form); err != nil {
		a.invalidRegistration(ctx, form, bindErrors(err))
		return
	}
	form.Username = strings.TrimSpace(form.Username)
	if !validUsername(form.Username) {
		a.invalidRegistration(ctx, form, FieldErrors{"username": usernameHelp})
		return
	}
	if err := utils.ValidatePassword(form.Password, form.Username); err != nil {
		a.invalidRegistration(ctx, form, FieldErrors{"password1": err.Error()})
		return
	}

	hash, err := utils.HashPassword(form.Password)
	if err != nil {
		serverError(ctx, 50001, "failed to hash password", err)
		return
	}
	user := models.User{
		Username:     form.Username,
		Email:        strings.TrimSpace(form.Email),
		FirstName:    strings.TrimSpace(form.FirstName),
		LastName:     strings.TrimSpace(form.LastName),
		PasswordHash: hash,
		IsStaff:      a.Config.IsAdmin(form.Username),
	}
	err = a.Store.CreateUser(ctx.Request.Context(), &user)
	if errors.Is(err, store.ErrDuplicate) {
		a.invalidRegistration(ctx, form, FieldErrors{"username": "a user with that username already exists"})
		return
	}
	if err != nil {
		serverError(ctx, 50002, "failed to create user", err)
		return
	}
	utils.Sugar.Infow("user registered", "user_id", user.ID, "username", user.Username, "staff", user.IsStaff)
	ctx.Redirect(http.StatusFound, a.Config.LoginURL)
}

func (a *AuthController) invalidRegistration(ctx *gin.Context, form registerForm, errs FieldErrors) {
	form.Password, form.Confirm = "", ""
	a.render(ctx, http.StatusBadRequest, "registration/registration_form.html", gin.H{"form": form, "errors": errs})
}

// Login verifies credentials and issues a JWT. JSON clients get the token in
// the body; form posts get it as a cookie and are redirected to next.
func (a *AuthController) Login(ctx *gin.Context) {
	next := safeNext(ctx.Query("next"))
	if ctx.Request.Method == http.MethodGet {
		a.render(ctx, http.StatusOK, "registration/login.html", gin.H{"next": next})
		return
	}
	if v := safeNext(ctx.PostForm("next")); v != "/" {
		next = v
	}

	var form loginForm
	if err := ctx.ShouldBind(&form); err != nil {
		a.render(ctx, http.StatusBadRequest, "registration/login.html", gin.H{"next": next, "errors": bindErrors(err)})
		return
	}
	user, err := a.Store.UserByUsername(ctx.Request.Context(), strings.TrimSpace(form.Username))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		serverError(ctx, 50003, "failed to load user", err)
		return
	}
	if user == nil || !utils.CheckPassword(user.PasswordHash, form.Password) {
		a.render(ctx, http.StatusBadRequest, "registration/login.html", gin.H{
			"next":   next,
			"errors": FieldErrors{"__all__": "invalid username or password"},
		})
		return
	}

	token, err := a.token(user)
	if err != nil {
		serverError(ctx, 50004, "failed to generate token", err)
		return
	}
	if ctx.ContentType() == gin.MIMEJSON {
		utils.Success(ctx, gin.H{"token": token, "user": user})
		return
	}
	a.setCookie(ctx, token)
	ctx.Redirect(http.StatusFound, next)
}

// Logout revokes the current token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	if token := middleware.CurrentToken(ctx); token != "" && a.Blacklist != nil {
		expiresAt := time.Now().Add(a.tokenTTL())
		if claims, err := utils.ParseToken(a.Config.JWTSecret, token); err == nil {
			expiresAt = claims.ExpiresAtOr(expiresAt)
		}
		a.Blacklist.Revoke(ctx.Request.Context(), token, expiresAt)
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, "", -1, "/", "", false, true)
	a.render(ctx, http.StatusOK, "registration/logged_out.html", gin.H{})
}

func (a *AuthController) tokenTTL() time.Duration {
	return time.Duration(a.Config.TokenTTLHours) * time.Hour
}

func (a *AuthController) token(user *models.User) (string, error) {
	return utils.GenerateToken(a.Config.JWTSecret, policy.Requester{
		UserID:   user.ID,
		Username: user.Username,
		Staff:    user.IsStaff,
	}, a.tokenTTL())
}

func (a *AuthController) setCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(middleware.TokenCookie, token, int(a.tokenTTL().Seconds()), "/", "", false, true)
}

// issueToken replaces the session cookie after the username changed.
func issueToken(ctx *gin.Context, env *Env, user *models.User) error {
	a := AuthController{Env: env}
	token, err := a.token(user)
	if err != nil {
		return err
	}
	a.setCookie(ctx, token)
	return nil
}

// safeNext only follows local paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}
