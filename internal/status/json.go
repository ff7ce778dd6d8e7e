package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/peckboard/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Ready         bool         `json:"ready"`
	InterruptLine string       `json:"interrupt_line,omitempty"`
	Error         string       `json:"error,omitempty"`
	Keys          KeysJSON     `json:"keys"`
	TotalPecks    int          `json:"total_pecks"`
	LastPeck      *PeckJSON    `json:"last_peck,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// KeysJSON holds per-position state.
type KeysJSON struct {
	Right  KeyJSON `json:"right"`
	Center KeyJSON `json:"center"`
	Left   KeyJSON `json:"left"`
}

// KeyJSON is one position's LED color and peck count.
type KeyJSON struct {
	Color string `json:"color"`
	Pecks int    `json:"pecks"`
}

// PeckJSON is the JSON representation of the last peck.
type PeckJSON struct {
	Position  string `json:"position"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	HeartbeatMs       int64    `json:"heartbeat_ms"`
	MinPressMs        int64    `json:"min_press_ms"`
	DiscoverTimeoutMs int64    `json:"discover_timeout_ms"`
	Broker            string   `json:"broker"`
	HTTPAddr          string   `json:"http_addr"`
	ConfigPath        string   `json:"config_path,omitempty"`
	Candidates        []string `json:"candidates"`
}

func keyJSON(snap Snapshot, pos logic.KeyPosition) KeyJSON {
	return KeyJSON{Color: snap.Colors[pos].String(), Pecks: snap.Counts.Get(pos)}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         snap.State,
		Ready:         snap.Monitoring(),
		InterruptLine: snap.InterruptLine,
		Error:         snap.LastError,
		Keys: KeysJSON{
			Right:  keyJSON(snap, logic.PositionRight),
			Center: keyJSON(snap, logic.PositionCenter),
			Left:   keyJSON(snap, logic.PositionLeft),
		},
		TotalPecks:    snap.Counts.Total(),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			HeartbeatMs:       snap.Config.HeartbeatMs,
			MinPressMs:        snap.Config.MinPressMs,
			DiscoverTimeoutMs: snap.Config.DiscoverTimeoutMs,
			Broker:            snap.Config.Broker,
			HTTPAddr:          snap.Config.HTTPAddr,
			ConfigPath:        snap.Config.ConfigPath,
			Candidates:        snap.Config.Candidates,
		},
	}
	if snap.LastPeck != nil {
		inner.LastPeck = &PeckJSON{
			Position:  snap.LastPeck.Position.String(),
			Color:     snap.LastPeck.Color.String(),
			Timestamp: snap.LastPeck.Time.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
