// Package health gathers runtime, traffic and dependency status for the status page.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"carbonmarket/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Dependency states.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
	StatusReachable    = "reachable"
	StatusUnreachable  = "unreachable"
	StatusDisabled     = "disabled"
)

// DBPinger is satisfied by *sql.DB.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// Probes lists what to check. Nil fields are reported as disabled.
type Probes struct {
	Redis *redis.Client
	DB    DBPinger
	// Endpoints are pinged over HTTP, keyed by dependency name.
	Endpoints map[string]string
	// Sessions reports coordinators held in memory.
	Sessions func() int
}

type CollectResult struct {
	Status         string               `json:"status"`
	Runtime        RuntimeInfo          `json:"runtime"`
	Traffic        TrafficInfo          `json:"traffic"`
	ActiveSessions int                  `json:"activeSessions"`
	Dependencies   map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int            `json:"totalRequests"`
	SuccessCount    int            `json:"successCount"`
	FailedCount     int            `json:"failedCount"`
	SuccessRate     string         `json:"successRate"`
	AvgResponseTime string         `json:"avgResponseTime"`
	LastRequest     map[string]any `json:"lastRequest"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

var processStart = time.Now()

// CollectHealth checks every configured probe. Status is "ok" only when every
// enabled dependency answered.
func CollectHealth(ctx context.Context, p Probes) CollectResult {
	result := CollectResult{
		Dependencies: make(map[string]DepStatus),
		Traffic:      TrafficInfo{SuccessRate: "100", AvgResponseTime: "0"},
	}

	if p.DB != nil {
		result.Dependencies["database"] = ping(func() error { return p.DB.PingContext(ctx) }, StatusConnected, StatusError)
	} else {
		result.Dependencies["database"] = DepStatus{Status: StatusDisabled}
	}

	startMs := processStart.UnixMilli()
	if p.Redis != nil {
		dep := ping(func() error { return p.Redis.Ping(ctx).Err() }, StatusConnected, StatusError)
		result.Dependencies["redis"] = dep
		if dep.Status == StatusConnected {
			startMs = readTraffic(ctx, p.Redis, &result.Traffic, startMs)
		}
	} else {
		result.Dependencies["redis"] = DepStatus{Status: StatusDisabled}
	}

	for name, url := range p.Endpoints {
		result.Dependencies[name] = ping(func() error { return httpPing(ctx, url) }, StatusReachable, StatusUnreachable)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := (time.Now().UnixMilli() - startMs) / 1000
	if uptime < 0 {
		uptime = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	if p.Sessions != nil {
		result.ActiveSessions = p.Sessions()
	}

	result.Status = "ok"
	for _, d := range result.Dependencies {
		if d.Status == StatusError || d.Status == StatusUnreachable {
			result.Status = "issue"
		}
	}
	return result
}

func ping(fn func() error, okStatus, failStatus string) DepStatus {
	start := time.Now()
	if err := fn(); err != nil {
		return DepStatus{Status: failStatus}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: okStatus, PingMs: &ms}
}

// readTraffic loads the counters written by middleware.HealthMarker and returns
// the shared start time, seeding it on first use.
func readTraffic(ctx context.Context, rdb *redis.Client, t *TrafficInfo, startMs int64) int64 {
	vals, err := rdb.MGet(ctx, middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq).Result()
	if err != nil {
		return startMs
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}
	t.TotalRequests, _ = strconv.Atoi(str(0))
	t.FailedCount, _ = strconv.Atoi(str(1))
	t.SuccessCount = t.TotalRequests - t.FailedCount
	if t.TotalRequests > 0 {
		t.SuccessRate = strconv.FormatFloat(float64(t.SuccessCount)/float64(t.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	if count, _ := strconv.Atoi(str(3)); count > 0 {
		t.AvgResponseTime = strconv.FormatFloat(timeSum/float64(count), 'f', 2, 64)
	}
	if s := str(4); s != "" {
		if v, err := strconv.ParseInt(s, 10, 64); err == nil {
			startMs = v
		}
	} else {
		rdb.SetNX(ctx, middleware.KeyStartTime, startMs, 0)
	}
	if s := str(5); s != "" {
		_ = json.Unmarshal([]byte(s), &t.LastRequest)
	}
	return startMs
}

func httpPing(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
