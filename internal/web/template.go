package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/peckboard/internal/logic"
	"github.com/sweeney/peckboard/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"lower": func(v fmt.Stringer) string { return strings.ToLower(v.String()) },
	"join":  strings.Join,
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Peck Board</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.led { display: inline-block; width: 10px; height: 10px; border-radius: 50%; margin-right: 6px; vertical-align: middle; border: 1px solid #999; }
.led.off { background: #eee; }
.led.blue { background: blue; }
.led.red { background: red; }
.led.green { background: green; }
.led.all { background: white; box-shadow: 0 0 4px #666; }
.monitoring { color: green; font-weight: bold; }
.failed { color: red; font-weight: bold; }
.pending { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Peck Board</h1>

<h2>Controller</h2>
<table>
<tr><th>State</th><td id="state" class="{{if eq .State "MONITORING"}}monitoring{{else if eq .State "FAILED"}}failed{{else}}pending{{end}}">{{.State}}</td></tr>
<tr><th>Interrupt line</th><td>{{if .InterruptLine}}{{.InterruptLine}}{{else}}not discovered{{end}}</td></tr>
{{if .LastError}}<tr><th>Error</th><td class="failed">{{.LastError}}</td></tr>{{end}}
</table>

<h2>Keys</h2>
<table>
<tr><th>Key</th><td>LED</td><td>Pecks</td></tr>
{{range .Keys}}<tr><th>{{.Position}}</th><td id="key-{{lower .Position}}"><span class="led {{lower .Color}}"></span>{{.Color}}</td><td>{{.Pecks}}</td></tr>
{{end}}<tr><th>Total</th><td></td><td>{{.Counts.Total}}</td></tr>
</table>
{{if .LastPeck}}<p>Last peck: {{.LastPeck.Position}} &rarr; {{.LastPeck.Color}} at {{.LastPeck.Time.UTC.Format "2006-01-02T15:04:05Z"}}</p>{{end}}

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Candidates</th><td>{{join .Config.Candidates " "}}</td></tr>
<tr><th>Min press</th><td>{{if eq .Config.MinPressMs 0}}disabled{{else}}{{.Config.MinPressMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
</body>
</html>
`

type keyRow struct {
	Position logic.KeyPosition
	Color    logic.LedColor
	Pecks    int
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]keyRow, 0, logic.NumPositions)
	for _, pos := range logic.Positions {
		rows = append(rows, keyRow{Position: pos, Color: snap.Colors[pos], Pecks: snap.Counts.Get(pos)})
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Keys   []keyRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Keys:     rows,
	}
	indexTmpl.Execute(w, data)
}
