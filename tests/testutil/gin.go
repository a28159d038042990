package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

// TestContext pairs a gin context with the recorder capturing its response
type TestContext struct {
	Context  *gin.Context
	Recorder *httptest.ResponseRecorder
}

func newTestContext(req *http.Request) *TestContext {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return &TestContext{Context: c, Recorder: w}
}

// NewTestContext returns a context for GET / with no body
func NewTestContext(t *testing.T) *TestContext {
	t.Helper()
	return newTestContext(httptest.NewRequest(http.MethodGet, "/", nil))
}

// WithRequestID stores id under the key the RequestID middleware uses
func (tc *TestContext) WithRequestID(id string) *TestContext {
	tc.Context.Set("request_id", id)
	return tc
}

// WithParam adds a path parameter, as the router would for /:key
func (tc *TestContext) WithParam(key, value string) *TestContext {
	tc.Context.AddParam(key, value)
	return tc
}

func (tc *TestContext) WithHeader(key, value string) *TestContext {
	tc.Context.Request.Header.Set(key, value)
	return tc
}

// Status is the response status written so far
func (tc *TestContext) Status() int {
	return tc.Recorder.Code
}

func (tc *TestContext) Body() []byte {
	return tc.Recorder.Body.Bytes()
}
