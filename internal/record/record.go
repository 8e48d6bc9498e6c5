package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Meta is the JSON trailer of the marker file. StartUnix pins the spawn-time
// process start clock so a reused PID is not mistaken for our daemon.
type Meta struct {
	Port      int    `json:"port"`
	LogPath   string `json:"log_path"`
	StartUnix int64  `json:"start_unix"`
}

// Record is the persisted marker for the single tracked daemon instance:
// first line PID, second line Meta as JSON.
type Record struct {
	PID  int
	Meta Meta
}

// Write persists the marker atomically enough for a single-operator tool:
// write to a temp file in the same directory, then rename.
func Write(path string, r Record) error {
	if r.PID <= 0 {
		return fmt.Errorf("refusing to write marker with pid %d", r.PID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	meta, err := json.Marshal(r.Meta)
	if err != nil {
		return err
	}
	body := strconv.Itoa(r.PID) + "\n" + string(meta) + "\n"
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(body), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read loads the marker. exists is false when no marker file is present;
// err is reserved for unreadable or corrupt markers.
func Read(path string) (r Record, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}
	lines := strings.Split(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	pidStr := strings.TrimSpace(lines[0])
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return Record{}, false, fmt.Errorf("invalid pid in %s: %w", path, err)
	}
	r = Record{PID: pid}
	if len(lines) >= 2 {
		// Tolerate a missing/garbled meta line; the PID alone still identifies the instance.
		_ = json.Unmarshal([]byte(strings.TrimSpace(lines[1])), &r.Meta)
	}
	return r, true, nil
}

// Remove deletes the marker, treating "already gone" as success.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Alive reports whether the recorded PID is a live process that is still the
// process we spawned. A live PID whose start time differs from the recorded
// one is a reused PID and counts as dead.
func (r Record) Alive() bool {
	if !pidAlive(r.PID) {
		return false
	}
	if r.Meta.StartUnix > 0 {
		if cur := StartUnix(r.PID); cur > 0 && cur != r.Meta.StartUnix {
			return false
		}
	}
	return true
}
