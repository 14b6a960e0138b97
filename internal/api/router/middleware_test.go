package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/samruben96/documine-sub011/internal/api/handler"
)

func newAgencyTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(AgencyMiddleware())
	r.GET("/probe", func(c *gin.Context) {
		c.String(http.StatusOK, handler.AgencyID(c))
	})
	return r
}

func TestAgencyMiddlewareMissingHeader(t *testing.T) {
	r := newAgencyTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), handler.CodeUnauthenticated)
}

func TestAgencyMiddlewareInvalidAgencyID(t *testing.T) {
	r := newAgencyTestRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(AgencyHeader, "not-a-uuid")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), handler.CodeNoAgency)
}

func TestAgencyMiddlewarePassesValidAgency(t *testing.T) {
	r := newAgencyTestRouter()

	agencyID := "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(AgencyHeader, agencyID)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, agencyID, w.Body.String())
}
