package model

import (
	"errors"
	"fmt"
)

// ErrInvalidWindowConfig is returned when the window pair violates 0 < short < long.
var ErrInvalidWindowConfig = errors.New("invalid window config")

// Reference defaults applied by the calling layer.
const (
	DefaultShortWindow = 20
	DefaultLongWindow  = 50
)

// WindowConfig is the (short, long) moving-average window pair.
type WindowConfig struct {
	Short int `json:"short_window" yaml:"short_window"`
	Long  int `json:"long_window" yaml:"long_window"`
}

// DefaultWindow returns the 20/50 window pair.
func DefaultWindow() WindowConfig {
	return WindowConfig{Short: DefaultShortWindow, Long: DefaultLongWindow}
}

// Validate checks 0 < Short < Long.
func (w WindowConfig) Validate() error {
	if w.Short <= 0 || w.Long <= 0 {
		return fmt.Errorf("%w: windows must be positive, got short=%d long=%d", ErrInvalidWindowConfig, w.Short, w.Long)
	}
	if w.Short >= w.Long {
		return fmt.Errorf("%w: short window must be less than long window, got short=%d long=%d", ErrInvalidWindowConfig, w.Short, w.Long)
	}
	return nil
}

func (w WindowConfig) String() string {
	return fmt.Sprintf("MA%d/MA%d", w.Short, w.Long)
}
