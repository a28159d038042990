package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors the API response body with a typed data payload.
type Envelope[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *APIError `json:"error"`
	Meta    *PageMeta `json:"meta"`
}

// APIError is the error object of a failed response.
type APIError struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	RequestID string       `json:"request_id"`
	Details   []FieldError `json:"details"`
}

// FieldError is one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PageMeta is the pagination block of list responses.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// DecodeEnvelope parses a response body, failing the test on malformed JSON.
func DecodeEnvelope[T any](t *testing.T, body []byte) Envelope[T] {
	t.Helper()
	var env Envelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "response is not an API envelope: %s", body)
	return env
}

// Serve runs handler directly on req, without routing or middleware, and
// returns the captured response
func Serve(t *testing.T, handler gin.HandlerFunc, req *http.Request) *TestContext {
	t.Helper()
	tc := newTestContext(req)
	handler(tc.Context)
	return tc
}

// NewJSONRequest builds a request whose body is body encoded as JSON.
// A nil body sends no payload.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, ToJSONReader(t, body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// JSONResponseAs parses the recorded response body into T.
func JSONResponseAs[T any](t *testing.T, tc *TestContext) T {
	t.Helper()
	var result T
	require.NoError(t, json.Unmarshal(tc.Body(), &result), "Failed to parse JSON response")
	return result
}

// AssertSuccessResponse asserts a successful envelope without an error object.
func AssertSuccessResponse(t *testing.T, tc *TestContext) {
	t.Helper()
	env := DecodeEnvelope[json.RawMessage](t, tc.Body())
	assert.True(t, env.Success, "Expected success to be true")
	assert.Nil(t, env.Error, "Expected no error")
}

// AssertErrorResponse asserts a failed envelope carrying expectedCode and
// returns its error object.
func AssertErrorResponse(t *testing.T, tc *TestContext, expectedCode string) *APIError {
	t.Helper()
	env := DecodeEnvelope[json.RawMessage](t, tc.Body())
	assert.False(t, env.Success, "Expected success to be false")
	require.NotNil(t, env.Error, "Expected error object in response")
	assert.Equal(t, expectedCode, env.Error.Code, "Unexpected error code")
	return env.Error
}

// ToJSONReader encodes v as a JSON reader.
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
