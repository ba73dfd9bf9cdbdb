package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestCollectHealth_NothingConfigured(t *testing.T) {
	result := CollectHealth(context.Background(), Probes{})
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, StatusDisabled, result.Dependencies["database"].Status)
	assert.Equal(t, StatusDisabled, result.Dependencies["redis"].Status)
	assert.Equal(t, 0, result.Traffic.TotalRequests)
	assert.NotEmpty(t, result.Runtime.GoVersion)
}

func TestCollectHealth_DatabaseDown(t *testing.T) {
	result := CollectHealth(context.Background(), Probes{DB: pinger{err: errors.New("refused")}, Sessions: func() int { return 3 }})
	assert.Equal(t, "issue", result.Status)
	assert.Equal(t, StatusError, result.Dependencies["database"].Status)
	assert.Nil(t, result.Dependencies["database"].PingMs)
	assert.Equal(t, 3, result.ActiveSessions)
}

func TestCollectHealth_WithMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	ctx := context.Background()

	result := CollectHealth(ctx, Probes{Redis: rdb, DB: pinger{}})
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, StatusConnected, result.Dependencies["redis"].Status)
	assert.Equal(t, "100", result.Traffic.SuccessRate)
	assert.True(t, mr.Exists("health:global:start_time"))

	require.NoError(t, rdb.Set(ctx, "health:global:req_total", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:req_errors", "2", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_time_total", "150.5", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:res_count", "10", 0).Err())
	require.NoError(t, rdb.Set(ctx, "health:global:last_request", `{"method":"GET","path":"/api/v1/state","ip":"1.2.3.4"}`, 0).Err())

	result = CollectHealth(ctx, Probes{Redis: rdb})
	assert.Equal(t, 10, result.Traffic.TotalRequests)
	assert.Equal(t, 8, result.Traffic.SuccessCount)
	assert.Equal(t, "80.0", result.Traffic.SuccessRate)
	assert.Equal(t, "15.05", result.Traffic.AvgResponseTime)
	assert.Equal(t, "/api/v1/state", result.Traffic.LastRequest["path"])
}

func TestCollectHealth_Endpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	result := CollectHealth(context.Background(), Probes{Endpoints: map[string]string{
		"supabase": srv.URL,
		"gemini":   "http://127.0.0.1:1",
	}})
	assert.Equal(t, StatusReachable, result.Dependencies["supabase"].Status)
	assert.Equal(t, StatusUnreachable, result.Dependencies["gemini"].Status)
	assert.Equal(t, "issue", result.Status)
}

func TestRenderDashboardHTML(t *testing.T) {
	ms := int64(4)
	page := RenderDashboardHTML(CollectResult{
		Status:       "issue",
		Traffic:      TrafficInfo{SuccessRate: "100", AvgResponseTime: "0", LastRequest: map[string]any{"method": "GET", "path": "/<x>", "ip": "::1"}},
		Dependencies: map[string]DepStatus{"redis": {Status: StatusConnected, PingMs: &ms}, "database": {Status: StatusError}},
	})
	assert.Contains(t, page, "System Issues Detected")
	assert.Contains(t, page, "connected · 4 ms")
	assert.Contains(t, page, "/&lt;x&gt;")
}
