package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carbon-exchange/marketplace-backend/pkg/addresses"
)

var secret = []byte("test-secret")

func newTestRouter() (*gin.Engine, *addresses.Address) {
	gin.SetMode(gin.TestMode)
	seen := &addresses.Address{}

	router := gin.New()
	router.POST("/op", Middleware(secret), func(c *gin.Context) {
		caller, ok := CallerAddress(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no caller"})
			return
		}
		*seen = caller
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router, seen
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	router, seen := newTestRouter()
	caller := addresses.DeriveString("wallet", "buyer-1")

	token, err := IssueToken(secret, caller, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/op", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, caller, *seen)
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/op", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	router, _ := newTestRouter()
	caller := addresses.DeriveString("wallet", "buyer-1")

	token, err := IssueToken([]byte("other-secret"), caller, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/op", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	router, _ := newTestRouter()
	caller := addresses.DeriveString("wallet", "buyer-1")

	token, err := IssueToken(secret, caller, -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/op", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
