package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/blogicum/config"
	"github.com/cppla/blogicum/policy"
	"github.com/cppla/blogicum/utils"
)

const (
	// ContextRequesterKey stores the policy.Requester inside Gin context.
	ContextRequesterKey = "requester"
	// ContextTokenKey stores the raw JWT so logout can revoke it.
	ContextTokenKey = "token"
	// TokenCookie carries the JWT for browser clients.
	TokenCookie = "token"
)

// Identify resolves the requester from a bearer token or the token cookie.
// Missing, invalid or revoked tokens leave the request anonymous. Staff comes
// from the token, which copies it from the account.
func Identify(cfg config.AppConfig, blacklist *utils.TokenBlacklist) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := bearerToken(ctx)
		if tokenString == "" {
			ctx.Next()
			return
		}
		if blacklist != nil && blacklist.IsRevoked(ctx.Request.Context(), tokenString) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(cfg.JWTSecret, tokenString)
		if err != nil {
			utils.Sugar.Debugf("ignoring invalid token: %v", err)
			ctx.Next()
			return
		}
		ctx.Set(ContextRequesterKey, claims.Requester())
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

func bearerToken(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := ctx.Cookie(TokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}

// CurrentRequester returns the identity set by Identify, or policy.Anonymous.
func CurrentRequester(ctx *gin.Context) policy.Requester {
	if v, ok := ctx.Get(ContextRequesterKey); ok {
		if r, ok := v.(policy.Requester); ok {
			return r
		}
	}
	return policy.Anonymous
}

// CurrentToken returns the raw JWT of an identified request.
func CurrentToken(ctx *gin.Context) string {
	return ctx.GetString(ContextTokenKey)
}

// LoginRedirect sends the client to loginURL, remembering where it came from.
func LoginRedirect(ctx *gin.Context, loginURL string) {
	target := loginURL + "?next=" + url.QueryEscape(ctx.Request.URL.RequestURI())
	ctx.Redirect(http.StatusFound, target)
	ctx.Abort()
}

// LoginRequired redirects anonymous requests to the login page.
func LoginRequired(loginURL string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !CurrentRequester(ctx).Authenticated() {
			LoginRedirect(ctx, loginURL)
			return
		}
		ctx.Next()
	}
}

// StaffRequired limits the admin endpoints to configured staff accounts.
func StaffRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		r := CurrentRequester(ctx)
		if !r.Authenticated() {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}
		if !r.Staff {
			utils.Error(ctx, http.StatusForbidden, 40301, "staff only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
