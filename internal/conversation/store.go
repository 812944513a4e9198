// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const fileExt = ".jsonl"

// Store holds one conversation per item key. With a directory set, each
// conversation is kept in <dir>/<escaped key>.jsonl: a header line with the
// item key and resume token, then one message per line.
type Store struct {
	mu    sync.Mutex
	dir   string
	convs map[string]*Conversation
}

// NewStore returns a store persisting to dir, or an in-memory store when dir is "".
func NewStore(dir string) *Store {
	return &Store{dir: dir, convs: make(map[string]*Conversation)}
}

// Get returns the conversation for itemKey, loading it from disk or creating it.
func (s *Store) Get(itemKey string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.convs[itemKey]; ok {
		return c, nil
	}
	c := New(itemKey)
	if s.dir != "" {
		rec, err := loadRecord(s.path(itemKey))
		if err != nil {
			return nil, err
		}
		if rec != nil {
			rec.ItemKey = itemKey
			c = fromRecord(*rec)
		}
	}
	s.convs[itemKey] = c
	return c, nil
}

// Save writes the conversation to disk. It does nothing for an in-memory store.
func (s *Store) Save(c *Conversation) error {
	if s.dir == "" {
		return nil
	}
	return rewriteRecord(s.path(c.ItemKey()), c.snapshot())
}

// Clear drops the local history and resume token for itemKey.
func (s *Store) Clear(itemKey string) error {
	s.mu.Lock()
	c, ok := s.convs[itemKey]
	delete(s.convs, itemKey)
	s.mu.Unlock()

	if ok {
		c.ClearHistory()
	}
	if s.dir == "" {
		return nil
	}
	if err := os.Remove(s.path(itemKey)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove conversation: %w", err)
	}
	return nil
}

// Keys lists the item keys with a conversation, in memory or on disk, sorted.
func (s *Store) Keys() ([]string, error) {
	s.mu.Lock()
	seen := make(map[string]bool, len(s.convs))
	for k := range s.convs {
		seen[k] = true
	}
	s.mu.Unlock()

	if s.dir != "" {
		entries, err := os.ReadDir(s.dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read conversations dir: %w", err)
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, fileExt) {
				continue
			}
			if key, err := url.PathUnescape(strings.TrimSuffix(name, fileExt)); err == nil {
				seen[key] = true
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) path(itemKey string) string {
	return filepath.Join(s.dir, url.PathEscape(itemKey)+fileExt)
}

// loadRecord reads a conversation file. A missing file returns nil. Replies that
// were still in flight when the file was written are marked as errors.
func loadRecord(path string) (*record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var rec *record
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if rec == nil {
			rec = &record{}
			if err := json.Unmarshal(line, rec); err != nil {
				return nil, fmt.Errorf("parse conversation header: %w", err)
			}
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			// Tolerate a partial last line
			break
		}
		if !msg.Status.IsTerminal() {
			msg.Status = StatusError
			if msg.Error == "" {
				msg.Error = "interrupted"
			}
		}
		rec.Messages = append(rec.Messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return rec, nil
}

// rewriteRecord replaces the conversation file through a temp file and rename.
func rewriteRecord(path string, rec record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create conversations dir: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp conversation file: %w", err)
	}

	enc := json.NewEncoder(f)
	err = enc.Encode(rec)
	for _, msg := range rec.Messages {
		if err != nil {
			break
		}
		err = enc.Encode(msg)
	}
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp conversation file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename conversation file: %w", err)
	}
	return nil
}
