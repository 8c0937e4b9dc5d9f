// Package daemon tracks a backgrounded opsdesk server through a state
// file holding its PID and listen address.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// State describes a running server.
type State struct {
	PID       int       `yaml:"pid"`
	Addr      string    `yaml:"addr"`
	LogFile   string    `yaml:"log_file,omitempty"`
	StartedAt time.Time `yaml:"started_at"`
}

// PIDFile manages the state file of a backgrounded server.
type PIDFile struct {
	Path string
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Write records st, creating the parent directory if needed. The file is
// replaced atomically so a concurrent reader never sees a partial write.
func (p *PIDFile) Write(st State) error {
	if st.PID <= 0 {
		return fmt.Errorf("invalid PID %d", st.PID)
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := p.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p.Path)
}

// WriteCurrent records the current process as serving addr.
func (p *PIDFile) WriteCurrent(addr, logFile string) error {
	return p.Write(State{
		PID:       os.Getpid(),
		Addr:      addr,
		LogFile:   logFile,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	})
}

// Read loads the recorded state.
func (p *PIDFile) Read() (*State, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("invalid PID file content: %w", err)
	}
	if st.PID <= 0 {
		return nil, fmt.Errorf("invalid PID file content: pid %d", st.PID)
	}
	return &st, nil
}

// Remove deletes the state file. A missing file is not an error.
func (p *PIDFile) Remove() error {
	err := os.Remove(p.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
