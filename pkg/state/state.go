package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/go-go-golems/leadctl/pkg/pipeline"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
)

const (
	StateDirName   = ".leadctl"
	StateFilename  = "state.json"
	EventsFilename = "events.jsonl"
)

// Snapshot is the last-known pipeline state written to disk so a dashboard
// can show something before the feed delivers its first event.
type Snapshot struct {
	SavedAt   time.Time           `json:"saved_at"`
	ServerURL string              `json:"server_url,omitempty"`
	LastRun   *protocol.RunConfig `json:"last_run,omitempty"`
	State     pipeline.State      `json:"state"`
}

// DefaultDir is ~/.leadctl, or ./.leadctl when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return StateDirName
	}
	return filepath.Join(home, StateDirName)
}

func StatePath(dir string) string {
	return filepath.Join(dir, StateFilename)
}

func Load(dir string) (*Snapshot, error) {
	b, err := os.ReadFile(StatePath(dir))
	if err != nil {
		return nil, errors.Wrap(err, "read state")
	}
	var s Snapshot
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "parse state json")
	}
	s.State = s.State.Normalize()
	return &s, nil
}

// LoadOptional returns nil without error when nothing has been saved yet.
func LoadOptional(dir string) (*Snapshot, error) {
	s, err := Load(dir)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Save replaces the snapshot atomically.
func Save(dir string, s *Snapshot) error {
	if s == nil {
		return errors.New("nil snapshot")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "mkdir state dir")
	}
	if s.SavedAt.IsZero() {
		s.SavedAt = time.Now().UTC()
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal state")
	}

	tmp, err := os.CreateTemp(dir, StateFilename+".*")
	if err != nil {
		return errors.Wrap(err, "create temp state")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "write state")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "close state")
	}
	if err := os.Rename(tmpName, StatePath(dir)); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrap(err, "rename state")
	}
	return nil
}

func Remove(dir string) error {
	if err := os.Remove(StatePath(dir)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "remove state")
	}
	return nil
}
