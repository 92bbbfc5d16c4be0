package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"agency-proxy.backend/internal/domain/entities"
	domainerrors "agency-proxy.backend/internal/domain/errors"
	"agency-proxy.backend/pkg/logger"
	"agency-proxy.backend/pkg/metrics"
)

// document is the shape published by the upstream list endpoint
type document struct {
	Data []json.RawMessage `json:"data"`
}

type snapshot struct {
	raw      json.RawMessage
	agencies []*entities.Agency
	modTime  time.Time
	size     int64
}

// SnapshotStore serves the agencies snapshot kept on local disk.
// The parsed file is cached and reloaded when its mtime or size changes, or after Invalidate.
type SnapshotStore struct {
	path string
	now  func() time.Time

	mu          sync.RWMutex
	current     *snapshot
	loadedAt    time.Time
	refreshedAt time.Time

	group singleflight.Group
}

// NewSnapshotStore creates a store backed by the file at path
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path, now: time.Now}
}

// Path returns the snapshot file location
func (s *SnapshotStore) Path() string {
	return s.path
}

func (s *SnapshotStore) Agencies(ctx context.Context) ([]*entities.Agency, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.agencies, nil
}

func (s *SnapshotStore) Raw(ctx context.Context) (json.RawMessage, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return snap.raw, nil
}

// Replace validates doc, writes it to a temp file next to the snapshot and renames it into place
func (s *SnapshotStore) Replace(ctx context.Context, doc []byte) (int, error) {
	agencies, err := parseDocument(doc)
	if err != nil {
		return 0, err
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, doc, "", "  "); err != nil {
		return 0, fmt.Errorf("%w: %v", domainerrors.ErrUpstream, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".agencias-*.json")
	if err != nil {
		return 0, fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(pretty.Bytes()); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return 0, fmt.Errorf("rename snapshot: %w", err)
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("stat snapshot: %w", err)
	}

	now := s.now()
	s.mu.Lock()
	s.current = &snapshot{raw: pretty.Bytes(), agencies: agencies, modTime: info.ModTime(), size: info.Size()}
	s.loadedAt = now
	s.refreshedAt = now
	s.mu.Unlock()

	metrics.DatasetLoaded(len(agencies))
	logger.Info(ctx, "Dataset snapshot replaced", zap.String("path", s.path), zap.Int("records", len(agencies)))
	return len(agencies), nil
}

// Invalidate drops the cached snapshot so the next read goes to disk
func (s *SnapshotStore) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *SnapshotStore) Status() entities.DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := entities.DatasetStatus{Path: s.path}
	if s.current != nil {
		st.Records = len(s.current.agencies)
	}
	if !s.loadedAt.IsZero() {
		t := s.loadedAt
		st.LoadedAt = &t
	}
	if !s.refreshedAt.IsZero() {
		t := s.refreshedAt
		st.RefreshedAt = &t
	}
	return st
}

func (s *SnapshotStore) load(ctx context.Context) (*snapshot, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domainerrors.ErrDatasetUnavailable
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	s.mu.RLock()
	cur := s.current
	s.mu.RUnlock()
	if cur != nil && cur.modTime.Equal(info.ModTime()) && cur.size == info.Size() {
		return cur, nil
	}

	v, err, _ := s.group.Do(s.path, func() (interface{}, error) {
		return s.readFile(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*snapshot), nil
}

func (s *SnapshotStore) readFile(ctx context.Context) (*snapshot, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domainerrors.ErrDatasetUnavailable
		}
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	agencies, err := parseDocument(raw)
	if err != nil {
		logger.Error(ctx, "Dataset snapshot is corrupt", zap.String("path", s.path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrDatasetUnavailable, err)
	}

	snap := &snapshot{raw: raw, agencies: agencies, modTime: info.ModTime(), size: info.Size()}
	s.mu.Lock()
	s.current = snap
	s.loadedAt = s.now()
	s.mu.Unlock()

	metrics.DatasetLoaded(len(agencies))
	logger.Debug(ctx, "Dataset snapshot loaded", zap.String("path", s.path), zap.Int("records", len(agencies)))
	return snap, nil
}

// parseDocument accepts {"data": [...]} or a bare array. Non-object records are skipped.
func parseDocument(doc []byte) ([]*entities.Agency, error) {
	doc = bytes.TrimSpace(doc)
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: empty document", domainerrors.ErrUpstream)
	}

	var records []json.RawMessage
	if doc[0] == '[' {
		if err := json.Unmarshal(doc, &records); err != nil {
			return nil, fmt.Errorf("%w: %v", domainerrors.ErrUpstream, err)
		}
	} else {
		var d document
		if err := json.Unmarshal(doc, &d); err != nil {
			return nil, fmt.Errorf("%w: %v", domainerrors.ErrUpstream, err)
		}
		if d.Data == nil {
			return nil, fmt.Errorf("%w: missing data array", domainerrors.ErrUpstream)
		}
		records = d.Data
	}

	agencies := make([]*entities.Agency, 0, len(records))
	for _, rec := range records {
		a, err := entities.ParseAgency(rec)
		if err != nil {
			continue
		}
		agencies = append(agencies, a)
	}
	return agencies, nil
}
