// Package status provides a thread-safe status tracker for the peckboard daemon.
// It is written by event subscribers and read by HTTP handlers and heartbeats.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/peckboard/internal/logic"
)

// NetworkInfo contains network state as reported by the host.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	HeartbeatMs       int64
	MinPressMs        int64
	DiscoverTimeoutMs int64
	Broker            string
	HTTPAddr          string
	ConfigPath        string
	Candidates        []string
}

// LastPeck describes the most recent committed color change.
type LastPeck struct {
	Position logic.KeyPosition
	Color    logic.LedColor
	Time     time.Time
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	State         string
	InterruptLine string
	LastError     string
	Colors        [logic.NumPositions]logic.LedColor
	Counts        logic.PressCounts
	LastPeck      *LastPeck
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Monitoring reports whether the controller is handling pecks.
func (s Snapshot) Monitoring() bool {
	return s.State == "MONITORING"
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     "UNINITIALIZED",
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// SetState records the controller lifecycle state. An empty line or error
// leaves the previous value in place.
func (t *Tracker) SetState(state, line, errMsg string) {
	t.mu.Lock()
	t.snap.State = state
	if line != "" {
		t.snap.InterruptLine = line
	}
	if errMsg != "" {
		t.snap.LastError = errMsg
	}
	t.mu.Unlock()
}

// RecordPeck stores the new color and peck count for pos.
func (t *Tracker) RecordPeck(pos logic.KeyPosition, color logic.LedColor, count int, at time.Time) {
	if !pos.Valid() {
		return
	}
	t.mu.Lock()
	t.snap.Colors[pos] = color
	switch pos {
	case logic.PositionRight:
		t.snap.Counts.Right = count
	case logic.PositionCenter:
		t.snap.Counts.Center = count
	case logic.PositionLeft:
		t.snap.Counts.Left = count
	}
	t.snap.LastPeck = &LastPeck{Position: pos, Color: color, Time: at}
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastPeck != nil {
		lp := *s.LastPeck
		s.LastPeck = &lp
	}
	s.Config.Candidates = append([]string(nil), s.Config.Candidates...)
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
