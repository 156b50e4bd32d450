// Package aliaslog persists the alias index as an append-only JSONL file.
// Each line is one record; the index replays the whole file on startup
// and compacts it back to a snapshot. A torn final line from a crashed
// write is tolerated on replay.
package aliaslog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/labsafe/sdsassist/internal/core/ports/driven"
)

var _ driven.AliasLog = (*Log)(nil)

// Log is a file-backed alias log.
type Log struct {
	mu   sync.Mutex
	path string
	file *os.File
	enc  *json.Encoder
}

// Open opens or creates the alias log at path.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening alias log: %w", err)
	}

	return &Log{
		path: path,
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Append writes one record and syncs it to disk.
func (l *Log) Append(rec driven.AliasRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return fmt.Errorf("alias log is closed")
	}
	if err := l.enc.Encode(rec); err != nil {
		return fmt.Errorf("appending alias record: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing alias log: %w", err)
	}
	return nil
}

// Replay returns all records in write order. A malformed final line is
// dropped rather than failing the whole replay; a malformed line in the
// middle of the file is an error.
func (l *Log) Replay() ([]driven.AliasRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening alias log: %w", err)
	}
	defer file.Close()

	var recs []driven.AliasRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec driven.AliasRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			if !scanner.Scan() {
				// Torn trailing write, likely a crash mid-append.
				break
			}
			return nil, fmt.Errorf("decoding alias record at line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading alias log: %w", err)
	}
	return recs, nil
}

// Compact atomically rewrites the log to the given snapshot.
func (l *Log) Compact(recs []driven.AliasRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".aliaslog-*")
	if err != nil {
		return fmt.Errorf("creating temp log: %w", err)
	}
	tmpPath := tmp.Name()

	enc := json.NewEncoder(tmp)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("writing compacted record: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing compacted log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing compacted log: %w", err)
	}

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("closing alias log: %w", err)
		}
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replacing alias log: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("reopening alias log: %w", err)
	}
	l.file = file
	l.enc = json.NewEncoder(file)
	return nil
}

// Close closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
