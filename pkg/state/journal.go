package state

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
)

func EventsPath(dir string) string {
	return filepath.Join(dir, EventsFilename)
}

// JournalEntry is one line of events.jsonl: the frame as received plus the
// local receive time.
type JournalEntry struct {
	At    time.Time       `json:"at"`
	Type  string          `json:"type"`
	Frame json.RawMessage `json:"frame"`
}

// Journal appends received feed frames to events.jsonl.
type Journal struct {
	dir string

	mu sync.Mutex
	f  *os.File
}

func OpenJournal(dir string) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir state dir")
	}
	f, err := os.OpenFile(EventsPath(dir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open events journal")
	}
	return &Journal{dir: dir, f: f}, nil
}

func (j *Journal) Append(ev protocol.Event, at time.Time) error {
	frame, err := protocol.Encode(ev)
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	line, err := json.Marshal(JournalEntry{At: at.UTC(), Type: string(ev.EventType()), Frame: frame})
	if err != nil {
		return errors.Wrap(err, "marshal journal entry")
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return errors.New("journal closed")
	}
	if _, err := j.f.Write(line); err != nil {
		return errors.Wrap(err, "append journal")
	}
	return nil
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return errors.Wrap(err, "close journal")
}

// RecentEvents returns up to n journal entries, oldest first. Lines that do
// not parse are skipped.
func RecentEvents(dir string, n int) ([]JournalEntry, error) {
	lines, err := TailLines(EventsPath(dir), n, 0)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]JournalEntry, 0, len(lines))
	for _, line := range lines {
		line = string(bytes.TrimSpace([]byte(line)))
		if line == "" {
			continue
		}
		var e JournalEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Event decodes the stored frame.
func (e JournalEntry) Event() (protocol.Event, error) {
	return protocol.Decode(e.Frame)
}
