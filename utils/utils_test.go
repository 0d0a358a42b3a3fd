package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogicum/policy"
)

func TestTokenRoundTrip(t *testing.T) {
	who := policy.Requester{UserID: 42, Username: "alice", Staff: true}
	token, err := GenerateToken("secret", who, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, who, claims.Requester())
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	again, err := GenerateToken("secret", who, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, token, again, "every session gets its own token id")

	_, err = ParseToken("other", token)
	assert.Error(t, err)

	_, err = GenerateToken("secret", policy.Anonymous, time.Hour)
	assert.ErrorIs(t, err, ErrTokenSubject)
}

func TestParseTokenRejectsExpiredAndForeignAlgorithms(t *testing.T) {
	expired, err := GenerateToken("secret", policy.Requester{UserID: 1, Username: "bob"}, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken("secret", unsigned)
	assert.Error(t, err)

	forever, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken("secret", forever)
	assert.Error(t, err, "tokens without expiry are refused")
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "anything"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correct horse", "alice"))
	assert.ErrorIs(t, ValidatePassword("short", "alice"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword("1234567890", "alice"), ErrPasswordNumeric)
	assert.ErrorIs(t, ValidatePassword("my-Alice-pass", "alice"), ErrPasswordUsername)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "hello ", Sanitize(`hello <script>alert(1)</script>`))
	assert.Equal(t, `<b>bold</b>`, Sanitize(`<b onclick="x()">bold</b>`))
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Title\n\n**strong** <script>x</script>")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Title</h1>")
	assert.Contains(t, html, "<strong>strong</strong>")
	assert.NotContains(t, html, "<script>")
}

func TestParsePage(t *testing.T) {
	assert.Equal(t, 1, ParsePage(""))
	assert.Equal(t, 1, ParsePage("0"))
	assert.Equal(t, 1, ParsePage("-3"))
	assert.Equal(t, 1, ParsePage("abc"))
	assert.Equal(t, 4, ParsePage("4"))
}
