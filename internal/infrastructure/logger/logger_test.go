package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew(t *testing.T) {
	t.Run("writes json to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.log")
		l, err := New(&Config{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		l.Info("deducted", zap.Int64("quantity", 7))
		require.NoError(t, l.Sync())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"deducted"`)
		assert.Contains(t, string(data), `"quantity":7`)
	})

	t.Run("tees into extra cores", func(t *testing.T) {
		core, recorded := observer.New(zapcore.InfoLevel)
		l, err := New(&Config{Level: "error", Format: "json", Output: "stderr"}, core)
		require.NoError(t, err)

		l.Info("restored")
		assert.Equal(t, 1, recorded.FilterMessage("restored").Len())
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		l, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, l)
	})
}

func TestContextHelpers(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	assert.NotNil(t, FromContext(context.Background()))

	ctx, _ := WithRequestID(context.Background(), base, "req-42")
	assert.Equal(t, "req-42", GetRequestID(ctx))

	Ctx(ctx, zap.NewNop()).Info("from request")
	entries := recorded.FilterMessage("from request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0].ContextMap()["request_id"])

	Ctx(context.Background(), base).Info("from base")
	assert.Equal(t, 1, recorded.FilterMessage("from base").Len())
	assert.Empty(t, GetTraceID(context.Background()))
}

func TestGormLogger_Trace(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Info, WithSlowThreshold(10*time.Millisecond))
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")

	sql := func() (string, int64) { return `UPDATE "projects" SET "export_quantity"=8 WHERE id = 1`, 1 }

	gl.Trace(ctx, time.Now(), sql, nil)
	gl.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	gl.Trace(ctx, time.Now(), sql, errors.New("deadlock detected"))
	gl.Trace(ctx, time.Now(), sql, gormlogger.ErrRecordNotFound)

	assert.Equal(t, 1, recorded.FilterMessage("SQL statement").Len())
	slow := recorded.FilterMessage("Slow SQL statement").All()
	require.Len(t, slow, 1)
	assert.Equal(t, "projects", slow[0].ContextMap()["table"])
	errs := recorded.FilterMessage("SQL statement failed").All()
	require.Len(t, errs, 1)
	assert.Equal(t, "req-1", errs[0].ContextMap()["request_id"])
	assert.Equal(t, "UPDATE", errs[0].ContextMap()["verb"])

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), sql, errors.New("ignored"))
	assert.Equal(t, 1, recorded.FilterMessage("SQL statement failed").Len())
}

func TestGormLogger_WarnLevelSkipsFastStatements(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), gormlogger.Warn, WithIgnoreRecordNotFoundError(false))
	sql := func() (string, int64) { return "SELECT 1", 1 }

	gl.Trace(context.Background(), time.Now(), sql, nil)
	assert.Zero(t, recorded.Len())

	gl.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, recorded.FilterMessage("SQL statement failed").Len())
}

func TestStatementTarget(t *testing.T) {
	tests := []struct {
		sql   string
		verb  string
		table string
	}{
		{`SELECT * FROM "warehouse_entries" WHERE project_id = $1`, "SELECT", "warehouse_entries"},
		{"INSERT INTO `packing_list_lines` (`id`) VALUES (?)", "INSERT", "packing_list_lines"},
		{`UPDATE "projects" SET remain_quantity = 3`, "UPDATE", "projects"},
		{`delete from warehouse_entry_images where entry_id = 1`, "DELETE", "warehouse_entry_images"},
		{"BEGIN", "BEGIN", ""},
		{"", "", ""},
	}
	for _, tt := range tests {
		verb, table := statementTarget(tt.sql)
		assert.Equal(t, tt.verb, verb, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel(""))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.InfoLevel)
	l := zap.New(core)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("request_id", "req-7"); c.Next() })
	r.Use(GinMiddleware(l), Recovery(l))
	r.GET("/projects/:id", func(c *gin.Context) {
		assert.Equal(t, "req-7", GetRequestID(c.Request.Context()))
		GetGinLogger(c).Info("handler")
		c.Status(http.StatusOK)
	})
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p-1?include=stock", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	handled := recorded.FilterMessage("handler").All()
	require.Len(t, handled, 1)
	assert.Equal(t, "/projects/:id", handled[0].ContextMap()["route"])
	access := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, access, 1)
	assert.Equal(t, "p-1", access[0].ContextMap()["param.id"])
	assert.Equal(t, "include=stock", access[0].ContextMap()["query"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
	assert.Equal(t, 1, recorded.FilterMessage("HTTP Request").FilterField(zap.Int("status", 500)).Len())
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "ledger.log")})
	assert.Error(t, err)
}
