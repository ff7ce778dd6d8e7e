// Package config loads the peck board wiring from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/sweeney/peckboard/internal/gpio"
	"github.com/sweeney/peckboard/internal/logic"
	"github.com/sweeney/peckboard/internal/peck"
)

const i2cSettle = 100 * time.Millisecond

// Wiring describes which lines the peck board is connected to.
type Wiring struct {
	Consumer  string    `toml:"consumer"`
	Interrupt Interrupt `toml:"interrupt"`
	Board     Board     `toml:"board"`
	I2C       I2C       `toml:"i2c"`
}

// Interrupt lists the candidate interrupt lines probed at startup.
type Interrupt struct {
	Chip       string `toml:"chip"`
	Candidates []int  `toml:"candidates"`
}

// Board holds the key, IR emitter and LED lines, all on one chip.
type Board struct {
	Chip string `toml:"chip"`
	Keys []int  `toml:"keys"`
	IR   []int  `toml:"ir"`
	LEDs LEDs   `toml:"leds"`
}

// LEDs holds the (red, blue, green) lines of each key.
type LEDs struct {
	Right  []int `toml:"right"`
	Center []int `toml:"center"`
	Left   []int `toml:"left"`
}

// I2C describes the expander instantiated by -i2c-export.
type I2C struct {
	AdapterDir string `toml:"adapter_dir"`
	Bus        int    `toml:"bus"`
	Addr       uint16 `toml:"addr"`
	Driver     string `toml:"driver"`
}

// Default returns the wiring of the reference apparatus.
func Default() Wiring {
	return Wiring{
		Consumer: gpio.DefaultConsumer,
		Interrupt: Interrupt{
			Chip:       "gpiochip2",
			Candidates: []int{22, 23, 24, 25},
		},
		Board: Board{
			Chip: "gpiochip4",
			Keys: []int{13, 14, 15},
			IR:   []int{9, 10, 11},
			LEDs: LEDs{
				Right:  []int{0, 3, 6},
				Center: []int{1, 4, 7},
				Left:   []int{2, 5, 8},
			},
		},
		I2C: I2C{
			AdapterDir: "/sys/class/i2c-adapter/i2c-1",
			Bus:        1,
			Addr:       0x20,
			Driver:     "pcf8575",
		},
	}
}

// Load reads path on top of Default. An empty path or a missing file yields
// the defaults.
func Load(path string) (Wiring, error) {
	w := Default()
	if path == "" {
		return w, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return w, nil
	}
	if err != nil {
		return w, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("parse TOML config %s: %w", path, err)
	}
	if err := w.Validate(); err != nil {
		return w, fmt.Errorf("config %s: %w", path, err)
	}
	return w, nil
}

// Validate checks the wiring is usable by the controller.
func (w Wiring) Validate() error {
	if w.Interrupt.Chip == "" {
		return errors.New("interrupt.chip is empty")
	}
	if len(w.Interrupt.Candidates) == 0 {
		return errors.New("interrupt.candidates is empty")
	}
	if err := unique(w.Interrupt.Chip, w.Interrupt.Candidates); err != nil {
		return err
	}

	if w.Board.Chip == "" {
		return errors.New("board.chip is empty")
	}
	if len(w.Board.Keys) != logic.NumPositions {
		return fmt.Errorf("board.keys: got %d lines, want %d", len(w.Board.Keys), logic.NumPositions)
	}
	groups := map[string][]int{
		"right":  w.Board.LEDs.Right,
		"center": w.Board.LEDs.Center,
		"left":   w.Board.LEDs.Left,
	}
	for name, lines := range groups {
		if len(lines) != logic.Channels {
			return fmt.Errorf("board.leds.%s: got %d lines, want %d", name, len(lines), logic.Channels)
		}
	}

	var all []int
	all = append(all, w.Board.Keys...)
	all = append(all, w.Board.IR...)
	all = append(all, w.Board.LEDs.Right...)
	all = append(all, w.Board.LEDs.Center...)
	all = append(all, w.Board.LEDs.Left...)
	if w.Board.Chip == w.Interrupt.Chip {
		all = append(all, w.Interrupt.Candidates...)
	}
	return unique(w.Board.Chip, all)
}

func unique(chip string, offsets []int) error {
	seen := make(map[int]bool, len(offsets))
	for _, o := range offsets {
		if seen[o] {
			return fmt.Errorf("line %s:%d assigned twice", chip, o)
		}
		seen[o] = true
	}
	return nil
}

// Candidates returns the interrupt candidates in probe order.
func (w Wiring) Candidates() []gpio.Line {
	lines := make([]gpio.Line, len(w.Interrupt.Candidates))
	for i, o := range w.Interrupt.Candidates {
		lines[i] = gpio.Line{Chip: w.Interrupt.Chip, Offset: o}
	}
	return lines
}

// PeckBoard converts the wiring into the controller's board description.
func (w Wiring) PeckBoard() peck.Board {
	return peck.Board{
		Candidates: w.Candidates(),
		Chip:       w.Board.Chip,
		Keys:       append([]int(nil), w.Board.Keys...),
		IR:         append([]int(nil), w.Board.IR...),
		LEDs: [logic.NumPositions][]int{
			logic.PositionRight:  append([]int(nil), w.Board.LEDs.Right...),
			logic.PositionCenter: append([]int(nil), w.Board.LEDs.Center...),
			logic.PositionLeft:   append([]int(nil), w.Board.LEDs.Left...),
		},
	}
}

// I2CDevice returns the expander description for gpio.EnsureI2CDevice.
func (w Wiring) I2CDevice() gpio.I2CDevice {
	return gpio.I2CDevice{
		AdapterDir: w.I2C.AdapterDir,
		Bus:        w.I2C.Bus,
		Addr:       w.I2C.Addr,
		Driver:     w.I2C.Driver,
		Settle:     i2cSettle,
	}
}
