package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/engine"
	"github.com/hexosynth/hexodsp/matrix"
)

// DefaultMatrixSize is used for files that do not store their dimensions.
const DefaultMatrixSize = 16

// Settings loads the settings from path, or the user settings if path is "".
func Settings(path string) (hexodsp.Settings, error) {
	if path != "" {
		return hexodsp.LoadSettingsFile(path)
	}
	s := hexodsp.LoadSettings()
	if s.YmlError != nil {
		return s, fmt.Errorf("user settings.yml: %w", s.YmlError)
	}
	return s, nil
}

// Logger returns a text logger writing to stderr at the configured level.
func Logger(s hexodsp.Settings) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: s.SlogLevel()}))
}

// LoadMatrix reads a matrix file and returns the synced matrix and its
// executor.
func LoadMatrix(path string, s hexodsp.Settings, logger *slog.Logger) (*matrix.Matrix, *engine.Executor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("could not read file %v: %w", path, err)
	}
	r, err := hexodsp.UnmarshalMatrixRepr(data)
	if err != nil {
		return nil, nil, fmt.Errorf("could not parse %v: %w", path, err)
	}
	w, h := r.Width, r.Height
	if w == 0 || h == 0 {
		w, h = DefaultMatrixSize, DefaultMatrixSize
	}
	m, exec := matrix.New(w, h, s, logger)
	// the executor must keep up with the graph messages of a large load
	stop, done := make(chan struct{}), make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				exec.ProcessGraphUpdates()
			}
		}
	}()
	err = m.FromRepr(r)
	close(stop)
	<-done
	if err != nil {
		return nil, nil, fmt.Errorf("could not load %v: %w", path, err)
	}
	return m, exec, nil
}
