package attendance

import (
	"fmt"
	"time"
)

// Window is a daily marking interval in minutes-of-day, closing bound
// exclusive. Grace minutes extend the close.
type Window struct {
	Open  int
	Close int
}

// Window builds the marking window from the settings times.
func (s Settings) Window() (Window, error) {
	open, err := parseClock(s.OpeningTime)
	if err != nil {
		return Window{}, fmt.Errorf("opening time: %w", err)
	}
	closing, err := parseClock(s.ClosingTime)
	if err != nil {
		return Window{}, fmt.Errorf("closing time: %w", err)
	}
	closing += s.GraceMinutes
	if closing <= open {
		return Window{}, fmt.Errorf("window closes (%d) before it opens (%d)", closing, open)
	}
	return Window{Open: open, Close: closing}, nil
}

// Contains reports whether t's wall-clock minute falls inside the window.
func (w Window) Contains(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return m >= w.Open && m < w.Close
}

// Validate checks the settings are internally consistent.
func (s Settings) Validate() error {
	if _, err := time.Parse(DateLayout, s.SessionStart); err != nil {
		return fmt.Errorf("session start: %w", err)
	}
	if s.GraceMinutes < 0 {
		return fmt.Errorf("grace minutes must not be negative")
	}
	_, err := s.Window()
	return err
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
