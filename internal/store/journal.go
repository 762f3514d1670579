// Package store records compositor events to an append-only JSONL journal
// so sessions can be replayed with `applist list --journal`.
package store

import (
	"bufio"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jmylchreest/applist/internal/model"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// Journal defines the interface for event storage.
type Journal interface {
	// Load reads all records from storage, oldest first.
	Load() ([]Record, error)

	// Append records an event and returns the stored record.
	Append(ev model.Event) (Record, error)

	// Clear removes all stored records.
	Clear() error

	// Close releases file handles and resources.
	Close() error
}

// Record is one journaled event.
type Record struct {
	ID         string      `json:"id"` // ULID
	RecordedAt int64       `json:"recorded_at"`
	Event      model.Event `json:"event"`
}

// RecordedTime returns RecordedAt as a time.Time.
func (r Record) RecordedTime() time.Time {
	return time.Unix(r.RecordedAt, 0)
}

// Events extracts the events from records in order.
func Events(records []Record) []model.Event {
	events := make([]model.Event, len(records))
	for i := range records {
		events[i] = records[i].Event
	}
	return events
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	AppListSchemaVersion int   `json:"applist_schema_version"`
	CreatedAt            int64 `json:"created_at"`
}

// JSONLJournal implements Journal using JSONL files.
type JSONLJournal struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
	now    func() time.Time
}

// NewJSONLJournal opens the journal at path, creating it and its parent
// directory if needed.
func NewJSONLJournal(path string) (*JSONLJournal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	j := &JSONLJournal{
		path: path,
		file: file,
		now:  time.Now,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() == 0 {
		if err := j.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return j, nil
}

// Path returns the journal file path.
func (j *JSONLJournal) Path() string {
	return j.path
}

func (j *JSONLJournal) writeHeader() error {
	header := schemaHeader{
		AppListSchemaVersion: SchemaVersion,
		CreatedAt:            j.now().Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return err
	}

	_, err = j.file.Write(append(data, '\n'))
	return err
}

// Load reads all records from the journal.
func (j *JSONLJournal) Load() ([]Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return nil, ErrJournalClosed
	}

	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", j.path, err)
	}

	records, err := readRecords(j.file)
	if err != nil {
		return records, err
	}

	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return records, err
	}
	return records, nil
}

// readRecords parses a journal stream, skipping malformed lines.
func readRecords(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)

	const maxLineSize = 1024 * 1024
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.AppListSchemaVersion > 0 {
				if header.AppListSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.AppListSchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil || rec.ID == "" {
			continue
		}
		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading journal: %w", err)
	}
	return records, nil
}

// Append records an event.
func (j *JSONLJournal) Append(ev model.Event) (Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return Record{}, ErrJournalClosed
	}

	now := j.now()
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return Record{}, fmt.Errorf("generate record id: %w", err)
	}

	rec := Record{ID: id.String(), RecordedAt: now.Unix(), Event: ev}
	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}

	if _, err := j.file.Write(append(data, '\n')); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Sync flushes appended records to disk.
func (j *JSONLJournal) Sync() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed || j.file == nil {
		return ErrJournalClosed
	}
	return j.file.Sync()
}

// Clear truncates the journal to a fresh header, keeping a backup until
// the new file is written.
func (j *JSONLJournal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return err
		}
		j.file = nil
	}

	backupPath := j.path + ".bak"
	if err := os.Rename(j.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(j.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, j.path)
		return err
	}
	j.file = file

	if err := j.writeHeader(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Close releases file handles and resources.
func (j *JSONLJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		return err
	}
	return nil
}

// ReadJournal loads the records of a journal file without opening it for
// writing.
func ReadJournal(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRecords(f)
}
