// SPDX-License-Identifier: MIT

package runstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, status := range []string{StatusSuccess, StatusDegraded, StatusFailed} {
		r := Run{
			ID:         string(rune('a' + i)),
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
			Input:      "in.csv",
			Output:     "out.parquet",
			RowsIn:     10,
			RowsOut:    9 - i,
			Duplicates: 1,
			Status:     status,
		}
		if status == StatusDegraded {
			r.Failures = []string{"strings: boom"}
		}
		require.NoError(t, s.Record(ctx, r))
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, StatusFailed, runs[0].Status)
	assert.Empty(t, runs[0].Failures)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, []string{"strings: boom"}, runs[1].Failures)
	assert.Equal(t, base.Add(time.Minute), runs[1].StartedAt)
	assert.Equal(t, 8, runs[1].RowsOut)
}

func TestStore_RecordReplacesSameID(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, s.Record(ctx, Run{ID: "x", StartedAt: now, FinishedAt: now, Status: StatusFailed}))
	require.NoError(t, s.Record(ctx, Run{ID: "x", StartedAt: now, FinishedAt: now, Status: StatusSuccess}))

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusSuccess, runs[0].Status)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, s.Record(context.Background(), Run{ID: "keep", StartedAt: now, FinishedAt: now, Status: StatusSuccess}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	runs, err := s.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "keep", runs[0].ID)
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Record(context.Background(), Run{ID: "x"}), ErrClosed)
	_, err = s.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}
