package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaVersion is the current persistence schema version.
const SchemaVersion = 1

// ErrPersistenceClosed is returned when operations are attempted on a
// closed persistence.
var ErrPersistenceClosed = errors.New("persistence is closed")

// Persistence defines the interface for history storage.
type Persistence interface {
	// Load reads all records from storage.
	Load() ([]Record, error)

	// Append adds a record to storage.
	Append(r Record) error

	// Rewrite replaces the entire storage file (used after prune).
	Rewrite(rs []Record) error

	// Clear removes all stored records.
	Clear() error

	// Close releases file handles and resources.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	NotifdSchemaVersion int   `json:"notifd_schema_version"`
	CreatedAt           int64 `json:"created_at"`
}

// JSONLPersistence implements Persistence using a JSONL file with a
// schema header line.
type JSONLPersistence struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// NewJSONLPersistence opens (creating if needed) the JSONL file at path.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	p := &JSONLPersistence{path: path, file: file}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.Size() == 0 {
		if err := p.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return p, nil
}

func (p *JSONLPersistence) writeHeader() error {
	header := schemaHeader{
		NotifdSchemaVersion: SchemaVersion,
		CreatedAt:           time.Now().Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return err
	}

	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Load reads all records from storage. Malformed lines are skipped.
func (p *JSONLPersistence) Load() ([]Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return nil, ErrPersistenceClosed
	}

	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", p.path, err)
	}

	var records []Record
	scanner := bufio.NewScanner(p.file)

	// Bodies can be long; allow lines up to 1MB.
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
			if err := json.Unmarshal(line, &header); err == nil && header.NotifdSchemaVersion > 0 {
				if header.NotifdSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.NotifdSchemaVersion, SchemaVersion)
				}
				continue
			}
			// Headerless legacy file, fall through and parse as a record.
		}

		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		if r.RecordID != "" {
			records = append(records, r)
		}
	}

	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("error reading file: %w", err)
	}

	if _, err := p.file.Seek(0, io.SeekEnd); err != nil {
		return records, err
	}

	return records, nil
}

// Append adds a record to storage and syncs it to disk.
func (p *JSONLPersistence) Append(r Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return ErrPersistenceClosed
	}

	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	if _, err := p.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return p.file.Sync()
}

// Rewrite replaces the entire storage file with the given records.
func (p *JSONLPersistence) Rewrite(rs []Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPersistenceClosed
	}

	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return err
		}
		p.file = nil
	}

	backupPath := p.path + ".bak"
	if err := os.Rename(p.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		os.Rename(backupPath, p.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	p.file = file

	if err := p.writeHeader(); err != nil {
		return err
	}

	for _, r := range rs {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		if _, err := p.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}

	if err := p.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Clear removes all stored records, leaving an empty file with a header.
func (p *JSONLPersistence) Clear() error {
	return p.Rewrite(nil)
}

// Close releases file handles and resources.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}
