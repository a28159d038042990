package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mfgorder/backend/internal/domain/shared"
	"github.com/mfgorder/backend/internal/interfaces/http/dto"
	"github.com/mfgorder/backend/internal/interfaces/http/middleware"
	"github.com/mfgorder/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(tc *testutil.TestContext)
		expectedID string
	}{
		{
			name:       "from context",
			setup:      func(tc *testutil.TestContext) { tc.WithRequestID("ctx-request-id") },
			expectedID: "ctx-request-id",
		},
		{
			name:       "from header when context empty",
			setup:      func(tc *testutil.TestContext) { tc.WithHeader(middleware.RequestIDKey, "header-request-id") },
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(tc *testutil.TestContext) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(tc *testutil.TestContext) {
				tc.WithRequestID("ctx-id")
				tc.WithHeader(middleware.RequestIDKey, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.NewTestContext(t)
			tt.setup(tc)
			assert.Equal(t, tt.expectedID, requestID(tc.Context))
		})
	}
}

func TestResponder_Helpers(t *testing.T) {
	h := &Responder{}
	tests := []struct {
		name       string
		respond    func(c *gin.Context)
		wantStatus int
		wantCode   string
	}{
		{"ok", func(c *gin.Context) { h.OK(c, gin.H{"id": "1"}) }, http.StatusOK, ""},
		{"created", func(c *gin.Context) { h.Created(c, gin.H{"id": "2"}) }, http.StatusCreated, ""},
		{"bad request", func(c *gin.Context) { h.BadRequest(c, "bad input") }, http.StatusBadRequest, dto.ErrCodeBadRequest},
		{"not found", func(c *gin.Context) { h.NotFound(c, "no such thing") }, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unexpected error", func(c *gin.Context) { h.Fail(c, errors.New("boom")) }, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testutil.Serve(t, tt.respond, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.wantStatus, tc.Status())
			if tt.wantCode == "" {
				testutil.AssertSuccessResponse(t, tc)
				return
			}
			testutil.AssertErrorResponse(t, tc, tt.wantCode)
		})
	}
}

func TestResponder_Page(t *testing.T) {
	h := &Responder{}
	tc := testutil.NewTestContext(t)

	h.Page(tc.Context, []int{1, 2}, 45, 2, 20)

	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestResponder_ErrorCarriesRequestID(t *testing.T) {
	h := &Responder{}
	tc := testutil.NewTestContext(t)
	tc.WithRequestID("req-42")

	h.Fail(tc.Context, shared.NewDomainError("INSUFFICIENT_STOCK", "only 3 left"))

	assert.Equal(t, http.StatusUnprocessableEntity, tc.Status())
	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeInsufficientStock, resp.Error.Code)
	assert.Equal(t, "only 3 left", resp.Error.Message)
	assert.Equal(t, "req-42", resp.Error.RequestID)
}

func TestResponder_Fail(t *testing.T) {
	tests := []struct {
		code       string
		wantStatus int
		wantCode   string
	}{
		{shared.CodeNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{shared.CodeAlreadyExists, http.StatusConflict, dto.ErrCodeAlreadyExists},
		{shared.CodeInvalidInput, http.StatusBadRequest, dto.ErrCodeInvalidInput},
		{shared.CodeConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{shared.CodeInvalidState, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{shared.CodeInsufficientStock, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientStock},
		{shared.CodeRestoreExceedsExported, http.StatusUnprocessableEntity, dto.ErrCodeRestoreExceedsExported},
		{shared.CodeExportExceedsEntry, http.StatusUnprocessableEntity, dto.ErrCodeExportExceedsEntry},
		{shared.CodeInvariantViolation, http.StatusConflict, dto.ErrCodeInvariantViolation},
		{shared.CodeInternal, http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := &Responder{}
			tc := testutil.NewTestContext(t)

			err := fmt.Errorf("deduct: %w", shared.NewDomainError(tt.code, "message for "+tt.code))
			h.Fail(tc.Context, err)

			assert.Equal(t, tt.wantStatus, tc.Status())
			resp := testutil.JSONResponseAs[dto.Response](t, tc)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "message for "+tt.code, resp.Error.Message)
		})
	}
}

func TestResponder_Fail_Unexpected(t *testing.T) {
	h := &Responder{}
	tc := testutil.NewTestContext(t)

	h.Fail(tc.Context, errors.New("pq: connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, tc.Status())
	body := string(tc.Body())
	assert.NotContains(t, body, "connection reset", "driver errors must not leak")
	testutil.AssertErrorResponse(t, tc, dto.ErrCodeInternal)
	assert.Len(t, tc.Context.Errors, 1)
}

func TestResponder_Fail_Nil(t *testing.T) {
	h := &Responder{}
	tc := testutil.NewTestContext(t)

	h.Fail(tc.Context, nil)

	assert.Empty(t, tc.Body())
}

func TestResponder_PathUUID(t *testing.T) {
	h := &Responder{}
	id := testutil.NewTestUUID("project")

	tc := testutil.NewTestContext(t)
	tc.WithParam("id", id.String())
	got, ok := h.pathUUID(tc.Context, "id", "project")
	require.True(t, ok)
	assert.Equal(t, id, got)

	tc = testutil.NewTestContext(t)
	tc.WithParam("id", "12345")
	got, ok = h.pathUUID(tc.Context, "id", "project")
	assert.False(t, ok)
	assert.Equal(t, uuid.Nil, got)
	assert.Equal(t, http.StatusBadRequest, tc.Status())
	assert.Contains(t, string(tc.Body()), "Invalid project ID format")
}

type bindTarget struct {
	Code     string `json:"code" binding:"required"`
	Quantity int64  `json:"quantity" binding:"gt=0"`
}

func bindContext(t *testing.T, body string) *testutil.TestContext {
	t.Helper()
	tc := testutil.NewTestContext(t)
	tc.Context.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	tc.WithHeader("Content-Type", "application/json")
	return tc
}

func TestResponder_BindJSON(t *testing.T) {
	h := &Responder{}

	t.Run("valid", func(t *testing.T) {
		tc := bindContext(t, `{"code":"A-1","quantity":3}`)
		var req bindTarget
		require.True(t, h.bindJSON(tc.Context, &req))
		assert.Equal(t, bindTarget{Code: "A-1", Quantity: 3}, req)
	})

	t.Run("validation failure lists fields", func(t *testing.T) {
		tc := bindContext(t, `{"quantity":-1}`)
		tc.WithRequestID("req-bind")
		var req bindTarget
		require.False(t, h.bindJSON(tc.Context, &req))

		assert.Equal(t, http.StatusBadRequest, tc.Status())
		resp := testutil.JSONResponseAs[dto.Response](t, tc)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-bind", resp.Error.RequestID)
		fields := make([]string, 0, len(resp.Error.Details))
		for _, d := range resp.Error.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"code", "quantity"}, fields)
	})

	t.Run("malformed json", func(t *testing.T) {
		tc := bindContext(t, `{"code":`)
		var req bindTarget
		require.False(t, h.bindJSON(tc.Context, &req))
		assert.Equal(t, http.StatusBadRequest, tc.Status())
		testutil.AssertErrorResponse(t, tc, dto.ErrCodeInvalidJSON)
	})

	t.Run("body too large", func(t *testing.T) {
		tc := bindContext(t, `{"code":"`+strings.Repeat("x", 64)+`","quantity":1}`)
		tc.Context.Request.Body = http.MaxBytesReader(tc.Recorder, tc.Context.Request.Body, 16)
		var req bindTarget
		require.False(t, h.bindJSON(tc.Context, &req))
		assert.Equal(t, http.StatusRequestEntityTooLarge, tc.Status())
		testutil.AssertErrorResponse(t, tc, dto.ErrCodePayloadTooLarge)
	})
}
