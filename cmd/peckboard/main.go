// Command peckboard drives a three-key peck board: every completed peck
// advances that key's LED color, and each change is published to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/sweeney/peckboard/internal/config"
	"github.com/sweeney/peckboard/internal/events"
	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logger"
	"github.com/sweeney/peckboard/internal/metrics"
	"github.com/sweeney/peckboard/internal/mqtt"
	"github.com/sweeney/peckboard/internal/peck"
	"github.com/sweeney/peckboard/internal/status"
	"github.com/sweeney/peckboard/internal/web"
)

type options struct {
	configPath      string
	broker          string
	httpAddr        string
	heartbeat       time.Duration
	discoverTimeout time.Duration
	debounce        time.Duration
	i2cExport       bool
	printState      bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "/etc/peckboard.toml", "TOML wiring file (missing file uses built-in wiring)")
	logLevel := flag.String("log-level", "info", "Log level: none, error, warning, info, debug")
	flag.StringVar(&o.broker, "broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	flag.StringVar(&o.httpAddr, "http", ":80", "HTTP status address (empty to disable)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.DurationVar(&o.discoverTimeout, "discover-timeout", 0, "Give up interrupt discovery after this long (0 waits forever)")
	flag.DurationVar(&o.debounce, "debounce", 0, "Ignore releases closer than this to the last counted one (0 counts every release)")
	flag.BoolVar(&o.i2cExport, "i2c-export", false, "Instantiate the I2C GPIO expander before requesting lines")
	flag.BoolVar(&o.printState, "print-state", false, "Print the currently pressed key and exit")

	flag.Parse()

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	lg := logger.NewSystemLogger(log.New(os.Stderr, "", log.LstdFlags), level)

	if err := run(o, lg); err != nil {
		lg.Fatalf("fatal: %v", err)
	}
}

func run(o options, lg *logger.Logger) error {
	wiring, err := config.Load(o.configPath)
	if err != nil {
		return err
	}

	if o.i2cExport {
		dev := wiring.I2CDevice()
		created, err := gpio.EnsureI2CDevice(dev)
		if err != nil {
			return &peck.SetupError{Op: "export i2c expander", Err: err}
		}
		if created {
			lg.Infof("instantiated %s at %s", dev.Driver, dev.DevicePath())
		}
	}

	// Initialize GPIO
	provider, err := gpio.NewRealProvider(wiring.Consumer)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer provider.Close()

	board := wiring.PeckBoard()

	// Print state mode
	if o.printState {
		return printState(os.Stdout, provider, board)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	candidates := make([]string, len(board.Candidates))
	for i, l := range board.Candidates {
		candidates[i] = l.String()
	}
	tracker := status.NewTracker(time.Now(), status.Config{
		HeartbeatMs:       o.heartbeat.Milliseconds(),
		MinPressMs:        o.debounce.Milliseconds(),
		DiscoverTimeoutMs: o.discoverTimeout.Milliseconds(),
		Broker:            o.broker,
		HTTPAddr:          o.httpAddr,
		ConfigPath:        o.configPath,
		Candidates:        candidates,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	m := metrics.New()

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker: o.broker,
		Log:    lg,
		OnConnectionChange: func(up bool) {
			tracker.SetMQTTConnected(up)
			m.SetMQTTConnected(up)
		},
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	bus := events.New()
	defer bus.Close()
	unsubscribe := subscribe(bus, tracker, m, publisher, lg)
	defer unsubscribe()

	publishSystem(publisher, tracker, publisher, "STARTUP", "", lg)

	// Start HTTP status server
	if o.httpAddr != "" {
		srv := web.New(o.httpAddr, tracker, m.Handler())
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lg.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		lg.Infof("http status server listening on %s", o.httpAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, sig, err := awaitController(ctx, sigCh, o.discoverTimeout, func(ctx context.Context) (*peck.Controller, error) {
		return peck.New(ctx, provider, board,
			peck.WithLogger(lg.WithTag("peck")),
			peck.WithMinPressInterval(o.debounce),
			peck.WithObserver(func(p peck.Peck) { bus.Publish(peckEvent(p)) }),
			peck.WithStateObserver(func(s peck.State) {
				bus.Publish(events.StateEvent{State: s.String(), Time: time.Now()})
			}),
		)
	})
	if sig != nil {
		shutdown(publisher, publisher, tracker, sig, time.Now, lg)
		return nil
	}
	if err != nil {
		fault(publisher, tracker, err, lg)
		return err
	}
	defer ctrl.Close()

	bus.Publish(events.StateEvent{State: ctrl.State().String(), Line: ctrl.InterruptLine().String(), Time: time.Now()})
	ctrlErr := ctrl.Start(ctx)

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		lg.Warnf("sd_notify: %v", err)
	} else if ok {
		lg.Debugf("notified systemd")
	}
	publishSystem(publisher, tracker, publisher, "READY", "", lg)

	lg.Infof("started: interrupt=%s broker=%s heartbeat=%v debounce=%v",
		ctrl.InterruptLine(), o.broker, o.heartbeat, o.debounce)

	var heartbeat <-chan time.Time
	if o.heartbeat > 0 {
		ticker := time.NewTicker(o.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	err = runLoop(ctrlErr, publisher, publisher, tracker, time.Now, heartbeat, sigCh, lg)
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	return err
}

// awaitController builds the controller while still honouring shutdown
// signals; discovery can block until someone pecks a key.
func awaitController(ctx context.Context, sig <-chan os.Signal, timeout time.Duration, build func(context.Context) (*peck.Controller, error)) (*peck.Controller, os.Signal, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		c   *peck.Controller
		err error
	}
	done := make(chan result, 1)
	go func() {
		c, err := build(ctx)
		done <- result{c, err}
	}()

	select {
	case s := <-sig:
		cancel()
		if r := <-done; r.c != nil {
			r.c.Close()
		}
		return nil, s, nil
	case r := <-done:
		return r.c, nil, r.err
	}
}

func runLoop(ctrlErr <-chan error, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, heartbeat <-chan time.Time, sig <-chan os.Signal, lg *logger.Logger) error {
	for {
		select {
		case s := <-sig:
			shutdown(publisher, mqttStatus, tracker, s, now, lg)
			return nil

		case err, ok := <-ctrlErr:
			if !ok || err == nil {
				lg.Infof("controller stopped")
				return nil
			}
			fault(publisher, tracker, err, lg)
			return fmt.Errorf("controller: %w", err)

		case <-heartbeat:
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			// Refresh network info for heartbeat
			if net := readNetworkInfo(); net != nil {
				tracker.SetNetwork(net)
			}
			snap := tracker.Snapshot()
			lg.Infof("heartbeat: state=%s uptime=%v pecks=%d", snap.State, snap.Uptime().Truncate(time.Second), snap.Counts.Total())
			if err := publisher.PublishSystem(mqtt.SystemEvent{
				Timestamp:  now(),
				Event:      "HEARTBEAT",
				RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
			}); err != nil {
				lg.Warnf("heartbeat publish error: %v", err)
			}
		}
	}
}

func shutdown(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, s os.Signal, now func() time.Time, lg *logger.Logger) {
	lg.Infof("received %v, shutting down", s)
	name := signalName(s)
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  now(),
		Event:      "SHUTDOWN",
		Reason:     name,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", name),
	}); err != nil {
		lg.Warnf("failed to publish shutdown event: %v", err)
	} else {
		lg.Infof("published shutdown event")
	}
}

func fault(publisher mqtt.Publisher, tracker *status.Tracker, err error, lg *logger.Logger) {
	lg.Errorf("controller failed: %v", err)
	tracker.SetState(peck.StateFailed.String(), "", err.Error())

	reason := "UNKNOWN"
	var setupErr *peck.SetupError
	var readErr *peck.ReadError
	var writeErr *peck.WriteError
	switch {
	case errors.As(err, &setupErr):
		reason = "SETUP"
	case errors.As(err, &readErr):
		reason = "READ"
	case errors.As(err, &writeErr):
		reason = "WRITE"
	}

	snap := tracker.Snapshot()
	if perr := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "FAULT",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "FAULT", reason),
	}); perr != nil {
		lg.Warnf("failed to publish fault event: %v", perr)
	}
}

func publishSystem(publisher mqtt.Publisher, tracker *status.Tracker, mqttStatus mqtt.ConnectionStatus, event, reason string, lg *logger.Logger) {
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}
	snap := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}); err != nil {
		lg.Warnf("failed to publish %s event: %v", event, err)
	} else {
		lg.Infof("published %s event", event)
	}
}

// subscribe fans bus events out to the status tracker, metrics and MQTT.
func subscribe(bus *events.Bus, tracker *status.Tracker, m *metrics.Metrics, publisher mqtt.Publisher, lg *logger.Logger) func() {
	cancels := []func(){
		bus.SubscribePecks(func(ev events.PeckEvent) {
			tracker.RecordPeck(ev.Position, ev.To, ev.Count, ev.Time)
			m.ObservePeck(ev.Position, ev.To)
		}),
		bus.SubscribePecks(func(ev events.PeckEvent) {
			lg.Infof("peck: %s %s -> %s (%d)", ev.Position, ev.From, ev.To, ev.Count)
			if err := publisher.Publish(ev); err != nil {
				// Don't crash on publish failure
				lg.Warnf("publish error: %v", err)
			}
		}),
		bus.SubscribeStates(func(ev events.StateEvent) {
			tracker.SetState(ev.State, ev.Line, ev.Err)
			m.SetState(ev.State)
		}),
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}
}

func peckEvent(p peck.Peck) events.PeckEvent {
	return events.PeckEvent{
		Position: p.Position,
		From:     p.From,
		To:       p.To,
		Count:    p.Count,
		Time:     p.Time,
	}
}

func printState(w io.Writer, provider gpio.Provider, board peck.Board) error {
	keys, err := peck.NewKeyReader(provider, board.Chip, board.Keys)
	if err != nil {
		return err
	}
	defer keys.Close()

	pos, err := keys.Sample()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "key: %s\n", pos)
	return nil
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
