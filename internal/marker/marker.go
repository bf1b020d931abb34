// Package marker implements the completion marker files that sequence the
// provisioning stages: the network stage leaves one for us, we leave one for
// the web-server stage.
package marker

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	NetworkReady = "network-ready"
	StorageReady = "storage-ready"
)

// ErrPrerequisite means a required upstream marker is absent; the run must
// abort before touching any device.
var ErrPrerequisite = errors.New("prerequisite marker missing")

// Payload is the YAML body of the storage-ready marker, so the web-server
// stage can read the outcome without parsing logs.
type Payload struct {
	RunID      string    `yaml:"run_id"`
	Mounted    int       `yaml:"mounted"`
	Failed     int       `yaml:"failed"`
	Skipped    int       `yaml:"skipped"`
	TotalBytes uint64    `yaml:"total_bytes"`
	FinishedAt time.Time `yaml:"finished_at"`
}

type Store struct {
	Fs  afero.Fs
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Fs: afero.NewOsFs(), Dir: dir}
}

// RequireNetworkReady aborts the run when the network stage has not finished.
func (s *Store) RequireNetworkReady() error {
	ok, err := afero.Exists(s.Fs, filepath.Join(s.Dir, NetworkReady))
	if err != nil {
		return fmt.Errorf("check %s: %w", NetworkReady, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", NetworkReady, ErrPrerequisite)
	}
	return nil
}

// WriteStorageReady publishes the completion marker with the run summary.
func (s *Store) WriteStorageReady(p Payload) error {
	if err := s.Fs.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create marker dir: %w", err)
	}
	body, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}
	path := filepath.Join(s.Dir, StorageReady)
	if err := afero.WriteFile(s.Fs, path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", StorageReady, err)
	}
	return nil
}

// ReadStorageReady loads the last run summary, if a marker exists.
func (s *Store) ReadStorageReady() (Payload, error) {
	raw, err := afero.ReadFile(s.Fs, filepath.Join(s.Dir, StorageReady))
	if err != nil {
		return Payload{}, err
	}
	var p Payload
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("decode marker: %w", err)
	}
	return p, nil
}
