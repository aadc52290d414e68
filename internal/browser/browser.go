// Package browser bridges the service to a Chromium instance over the
// DevTools protocol: cookie jar access, cookie change events, the active
// tab origin and request blocking.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Session is a connected browser and the launcher that started it, if any.
type Session struct {
	Browser  *rod.Browser
	launcher *launcher.Launcher
}

// Connect attaches to controlURL, or launches a local Chromium when it is
// empty.
func Connect(ctx context.Context, controlURL string, headless bool) (*Session, error) {
	s := &Session{}

	if controlURL == "" {
		l := launcher.New().
			Leakless(true).
			Headless(headless).
			// Keep timers running in background tabs so cookie writes are not
			// delayed.
			Set("disable-background-timer-throttling").
			Set("disable-backgrounding-occluded-windows").
			Set("disable-renderer-backgrounding")

		u, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		controlURL = u
		s.launcher = l
	}

	b := rod.New().ControlURL(controlURL)

	var err error
	for i := 0; i < 10; i++ {
		if err = b.Connect(); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			s.cleanup()
			return nil, ctx.Err()
		case <-time.After(time.Duration(250*(i+1)) * time.Millisecond):
		}
	}
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	s.Browser = b
	log.Info("Connected to browser", "control_url", controlURL, "launched", s.launcher != nil)
	return s, nil
}

// Close disconnects and stops a launched browser.
func (s *Session) Close() error {
	var err error
	if s.Browser != nil {
		err = s.Browser.Close()
	}
	s.cleanup()
	return err
}

func (s *Session) cleanup() {
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
}
