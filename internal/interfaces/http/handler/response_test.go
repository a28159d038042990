package handler

import (
	"net/http"
	"testing"

	"github.com/mfgorder/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	h := NewHealthHandler(db)

	tc := testutil.NewTestContext(t)
	h.Health(tc.Context)
	require.Equal(t, http.StatusOK, tc.Status())
	resp := testutil.JSONResponseAs[envelope[HealthData]](t, tc)
	assert.True(t, resp.Success)
	assert.Equal(t, HealthData{Status: "ok", Database: "ok"}, resp.Data)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	tc = testutil.NewTestContext(t)
	h.Health(tc.Context)
	require.Equal(t, http.StatusServiceUnavailable, tc.Status())
	resp = testutil.JSONResponseAs[envelope[HealthData]](t, tc)
	assert.False(t, resp.Success)
	assert.Equal(t, "degraded", resp.Data.Status)
	assert.Contains(t, resp.Data.Database, "closed")
}
