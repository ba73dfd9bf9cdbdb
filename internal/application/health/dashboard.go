package health

import (
	"fmt"
	"html"
	"sort"
	"strings"
)

// RenderDashboardHTML renders the status page served at GET /. It reloads
// itself from /health/json every ten seconds.
func RenderDashboardHTML(h CollectResult) string {
	headline := "All Systems Operational"
	if h.Status != "ok" {
		headline = "System Issues Detected"
	}

	names := make([]string, 0, len(h.Dependencies))
	for name := range h.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	var deps strings.Builder
	for _, name := range names {
		d := h.Dependencies[name]
		class := "ok"
		switch d.Status {
		case StatusError, StatusUnreachable:
			class = "err"
		case StatusDisabled:
			class = "off"
		}
		ping := "--"
		if d.PingMs != nil {
			ping = fmt.Sprintf("%d ms", *d.PingMs)
		}
		fmt.Fprintf(&deps, `<div class="row"><span>%s</span><span class="pill %s">%s · %s</span></div>`,
			html.EscapeString(name), class, html.EscapeString(d.Status), ping)
	}

	last := "-"
	if lr := h.Traffic.LastRequest; lr != nil {
		last = html.EscapeString(fmt.Sprintf("%v %v from %v", lr["method"], lr["path"], lr["ip"]))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>CarbonMarket · API Status</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <meta http-equiv="refresh" content="10">
  <style>
    body { background: #F0FDF4; color: #14532D; font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; margin: 0; display: flex; justify-content: center; }
    .wrap { max-width: 960px; width: 100%%; padding: 40px 20px; }
    h1 { font-size: 44px; margin: 0 0 8px 0; letter-spacing: -1px; }
    h1.issue { color: #B91C1C; }
    .sub { color: #64748B; font-weight: 600; margin-bottom: 28px; }
    .grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 16px; }
    .card { background: #fff; border-radius: 16px; padding: 28px; box-shadow: 0 10px 40px -20px rgba(21,128,61,.3); }
    .label { text-transform: uppercase; font-size: 11px; font-weight: 800; letter-spacing: 2px; color: #94A3B8; margin-bottom: 16px; }
    .big { font-size: 36px; font-weight: 800; margin-bottom: 10px; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; border-bottom: 1px solid #F1F5F9; font-size: 14px; font-weight: 600; }
    .pill { padding: 3px 10px; border-radius: 8px; font-size: 11px; font-weight: 800; }
    .ok { background: #DCFCE7; color: #15803D; } .err { background: #FEE2E2; color: #B91C1C; } .off { background: #F1F5F9; color: #64748B; }
    .foot { margin-top: 20px; font-family: monospace; font-size: 13px; color: #64748B; }
    @media (max-width: 800px) { .grid { grid-template-columns: 1fr; } }
  </style>
</head>
<body>
  <div class="wrap">
    <h1 class="%s">%s</h1>
    <div class="sub">Marketplace API · %d active sessions</div>
    <div class="grid">
      <div class="card">
        <div class="label">Traffic</div>
        <div class="big">%d</div>
        <div class="row"><span>Successful</span><span>%d</span></div>
        <div class="row"><span>Failed</span><span>%d</span></div>
        <div class="row"><span>Success rate</span><span>%s%%</span></div>
        <div class="row"><span>Avg latency</span><span>%s ms</span></div>
      </div>
      <div class="card">
        <div class="label">Runtime</div>
        <div class="big">%s</div>
        <div class="row"><span>Heap in use</span><span>%d MB</span></div>
        <div class="row"><span>Goroutines</span><span>%d</span></div>
        <div class="row"><span>Platform</span><span>%s</span></div>
      </div>
      <div class="card">
        <div class="label">Dependencies</div>
        %s
      </div>
    </div>
    <div class="foot">Last inbound: %s · <a href="/health/errors">error log</a> · <a href="/metrics">metrics</a></div>
  </div>
</body>
</html>`,
		h.Status, headline, h.ActiveSessions,
		h.Traffic.TotalRequests, h.Traffic.SuccessCount, h.Traffic.FailedCount, h.Traffic.SuccessRate, h.Traffic.AvgResponseTime,
		formatUptime(h.Runtime.UptimeSeconds), h.Runtime.Memory.HeapUsed, h.Runtime.Goroutines, html.EscapeString(h.Runtime.Platform),
		deps.String(), last)
}

func formatUptime(s int64) string {
	d, h, m := s/86400, (s%86400)/3600, (s%3600)/60
	if d > 0 {
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	}
	return fmt.Sprintf("%dh %dm %ds", h, m, s%60)
}
