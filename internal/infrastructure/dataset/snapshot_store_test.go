package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainerrors "agency-proxy.backend/internal/domain/errors"
)

const sampleDoc = `{"data":[
	{"ter_id":1,"nombre":"LIMA CENTRO","lugar_over":"Lima","ter_habilitado_OS":1},
	{"ter_id":2,"nombre":"AREQUIPA","lugar_over":"Arequipa","ter_habilitado_OS":0},
	"not-an-object"
]}`

func TestSnapshotStore_MissingFile(t *testing.T) {
	s := NewSnapshotStore(filepath.Join(t.TempDir(), "agencias.json"))

	_, err := s.Agencies(context.Background())
	require.ErrorIs(t, err, domainerrors.ErrDatasetUnavailable)

	_, err = s.Raw(context.Background())
	require.ErrorIs(t, err, domainerrors.ErrDatasetUnavailable)
	require.Zero(t, s.Status().Records)
}

func TestSnapshotStore_ReplaceThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "agencias.json")
	s := NewSnapshotStore(path)
	fixed := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	ctx := context.Background()

	n, err := s.Replace(ctx, []byte(sampleDoc))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(onDisk), "\n  \"data\"")

	agencies, err := s.Agencies(ctx)
	require.NoError(t, err)
	require.Len(t, agencies, 2)
	require.Equal(t, "LIMA CENTRO", agencies[0].Nombre)
	require.False(t, agencies[1].Enabled())

	st := s.Status()
	require.Equal(t, path, st.Path)
	require.Equal(t, 2, st.Records)
	require.NotNil(t, st.RefreshedAt)
	require.True(t, st.RefreshedAt.Equal(fixed))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
}

func TestSnapshotStore_ReloadsWhenFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agencias.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data":[{"nombre":"A"}]}`), 0o644))
	s := NewSnapshotStore(path)
	ctx := context.Background()

	agencies, err := s.Agencies(ctx)
	require.NoError(t, err)
	require.Len(t, agencies, 1)

	require.NoError(t, os.WriteFile(path, []byte(`{"data":[{"nombre":"A"},{"nombre":"B"}]}`), 0o644))
	agencies, err = s.Agencies(ctx)
	require.NoError(t, err)
	require.Len(t, agencies, 2)

	raw, err := s.Raw(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"data":[{"nombre":"A"},{"nombre":"B"}]}`, string(raw))
}

func TestSnapshotStore_InvalidateForcesRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agencias.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"nombre":"A"}]`), 0o644))
	s := NewSnapshotStore(path)
	ctx := context.Background()

	_, err := s.Agencies(ctx)
	require.NoError(t, err)
	first := s.Status().LoadedAt

	s.now = func() time.Time { return first.Add(time.Hour) }
	s.Invalidate()
	_, err = s.Agencies(ctx)
	require.NoError(t, err)
	require.True(t, s.Status().LoadedAt.After(*first))
}

func TestSnapshotStore_RejectsBadDocuments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agencias.json")
	s := NewSnapshotStore(path)
	ctx := context.Background()

	for _, doc := range []string{``, `{`, `{"items":[]}`, `"text"`} {
		_, err := s.Replace(ctx, []byte(doc))
		require.ErrorIs(t, err, domainerrors.ErrUpstream, doc)
	}
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	require.NoError(t, os.WriteFile(path, []byte(`garbage`), 0o644))
	_, err = s.Agencies(ctx)
	require.ErrorIs(t, err, domainerrors.ErrDatasetUnavailable)
}
