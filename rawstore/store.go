// Package rawstore archives raw service payloads to date-keyed JSONL
// files so a failed run can be diagnosed without re-hitting the services.
package rawstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type RawPayload struct {
	Endpoint  string          `json:"endpoint"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

type FileStore struct {
	dir         string
	now         func() time.Time
	mu          sync.Mutex
	currentDate string
	file        *os.File
	writer      *bufio.Writer
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir: dir,
		now: time.Now,
	}
}

// Record satisfies the service client's payload-recorder hook. Archive
// failures must never fail a run, so errors are swallowed here; Close
// still reports flush problems.
func (s *FileStore) Record(endpoint string, payload []byte) {
	_ = s.Append(RawPayload{Endpoint: endpoint, Payload: append([]byte(nil), payload...)})
}

func (s *FileStore) Append(payload RawPayload) error {
	if s == nil {
		return fmt.Errorf("rawstore: store is nil")
	}
	if s.dir == "" {
		return fmt.Errorf("rawstore: directory is required")
	}
	if payload.FetchedAt.IsZero() {
		payload.FetchedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dateKey := payload.FetchedAt.Format("20060102")
	if err := s.ensureWriter(dateKey); err != nil {
		return err
	}

	line, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := s.writer.Write(append(line, '\n')); err != nil {
		return err
	}
	return nil
}

func (s *FileStore) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
	}
	s.writer = nil
	s.file = nil
	s.currentDate = ""
	return nil
}

func (s *FileStore) ensureWriter(dateKey string) error {
	if s.writer != nil && s.currentDate == dateKey {
		return nil
	}
	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("payloads-%s.jsonl", dateKey))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	s.file = file
	s.writer = bufio.NewWriter(file)
	s.currentDate = dateKey
	return nil
}
