// Package browser provides cross-platform browser opening.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog/log"
)

// openers maps GOOS to the command that opens a URL.
var openers = map[string][]string{
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"darwin":  {"open"},
	"windows": {"cmd", "/c", "start", ""},
}

// Command returns the command line that opens url on goos.
func Command(goos, url string) ([]string, error) {
	base, ok := openers[goos]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
	return append(append([]string{}, base...), url), nil
}

// Open opens the given URL in the default browser. The child is released
// once started and reaped in the background.
func Open(url string) error {
	argv, err := Command(runtime.GOOS, url)
	if err != nil {
		return err
	}
	return start(argv)
}

// start launches argv without waiting for it to finish.
func start(argv []string) error {
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug().Err(err).Str("cmd", argv[0]).Msg("browser opener exited")
		}
	}()
	return nil
}
