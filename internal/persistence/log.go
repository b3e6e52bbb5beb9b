// Package persistence owns the on-disk representation of the store's
// overflow tier: a flat file mapping key to value, rewritten wholesale on
// flush and scanned sequentially on restore.
package persistence

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// Record is a single key/value pair as stored on disk.
type Record struct {
	Key   string
	Value string
}

// Log owns the flat file at path. Its logical contents are a mapping from
// key to value; physically it is a sequence of `key '\t' value '\n'`
// records, escaped so that raw tabs and newlines inside keys or values
// cannot be mistaken for record delimiters.
type Log struct {
	path string
}

// NewLog returns a Log backed by the file at path. The file is not
// created or truncated until the first Rewrite.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Rewrite atomically replaces the file's contents with exactly the
// records in snapshot. It writes to a temporary file in the same
// directory and renames it into place, so a crash mid-write leaves either
// the old file or the new one, never a half-written one. Records are
// written in the order given, so two consecutive Rewrites of the same
// snapshot produce byte-identical files.
func (l *Log) Rewrite(snapshot []Record) error {
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("persistence: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range snapshot {
		if _, err := w.WriteString(escape(rec.Key)); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("persistence: write key: %w", err)
		}
		if err := w.WriteByte('\t'); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("persistence: write delimiter: %w", err)
		}
		if _, err := w.WriteString(escape(rec.Value)); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("persistence: write value: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("persistence: write newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("persistence: rename into place: %w", err)
	}

	klog.V(2).Infof("persistence: rewrote %s with %d records", l.path, len(snapshot))
	return nil
}

// Cursor produces records from a Log in file order, one at a time.
type Cursor struct {
	file *os.File
	r    *bufio.Reader
}

// Scan opens the log for sequential reading. If the file does not exist,
// Scan returns a Cursor whose Next immediately reports no more records —
// an absent persistence file is equivalent to an empty one, not an error.
func (l *Log) Scan() (*Cursor, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Cursor{}, nil
		}
		return nil, fmt.Errorf("persistence: open: %w", err)
	}
	return &Cursor{file: f, r: bufio.NewReader(f)}, nil
}

// Next returns the next record, or ok=false once the file is exhausted.
func (c *Cursor) Next() (Record, bool, error) {
	if c.r == nil {
		return Record{}, false, nil
	}

	rawKey, err := c.r.ReadString('\t')
	if err != nil {
		return Record{}, false, nil // clean EOF (or any trailing garbage) ends the scan
	}
	rawValue, err := c.r.ReadString('\n')
	if err != nil {
		return Record{}, false, nil
	}

	key := unescape(rawKey[:len(rawKey)-1])
	value := unescape(rawValue[:len(rawValue)-1])
	return Record{Key: key, Value: value}, true, nil
}

// Close releases the Cursor's underlying file handle, if any.
func (c *Cursor) Close() error {
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}

// Lookup scans the log for key and returns its value, implemented on top
// of Scan. This is O(file size), which is acceptable because the resident
// set is expected to absorb the vast majority of traffic.
func (l *Log) Lookup(key string) (string, bool, error) {
	cur, err := l.Scan()
	if err != nil {
		return "", false, err
	}
	defer cur.Close()

	for {
		rec, ok, err := cur.Next()
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, nil
		}
		if rec.Key == key {
			return rec.Value, true, nil
		}
	}
}

// Remove deletes the backing file entirely. Used between benchmark runs
// and by the store's CLEARPERSISTENCE-equivalent maintenance path. It is
// not an error for the file to already be absent.
func (l *Log) Remove() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("persistence: remove: %w", err)
	}
	return nil
}
