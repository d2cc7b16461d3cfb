package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tailored-agentic-units/flow/core/protocol"
)

type fileSession struct {
	id   string
	path string
	mu   sync.Mutex
}

// NewFileSession creates a Session persisted as a JSONL file, one item per
// line. The session ID is the file's base name without extension, so the
// same path reopens the same conversation. The parent directory is created
// if missing; the file itself is created on first append.
func NewFileSession(path string) (Session, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	id := filepath.Base(path)
	if ext := filepath.Ext(id); ext != "" {
		id = id[:len(id)-len(ext)]
	}

	return &fileSession{id: id, path: path}, nil
}

func (s *fileSession) ID() string {
	return s.id
}

func (s *fileSession) GetItems(_ context.Context, limit int) ([]protocol.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}
	defer f.Close()

	var items []protocol.Item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var item protocol.Item
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("corrupt session file %s: %w", s.path, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	return tail(items, limit), nil
}

func (s *fileSession) AddItems(_ context.Context, items []protocol.Item) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to append session item: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush session file: %w", err)
	}

	return nil
}
