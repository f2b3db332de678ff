package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/internal/apperr"
	"scoreboard/internal/config"
	"scoreboard/internal/model"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewStorage(config.DriverSQLite, filepath.Join(t.TempDir(), "directory.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateTenant(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	tenant, err := s.CreateTenant(ctx, "acme", "Acme Inc.")
	require.NoError(t, err)
	assert.NotZero(t, tenant.ID)
	assert.Equal(t, "acme", tenant.Name)

	got, err := s.GetTenantByName(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, got.ID)

	_, err = s.CreateTenant(ctx, "acme", "Other")
	require.Error(t, err)
	assert.True(t, apperr.IsDuplicate(err))

	_, err = s.GetTenant(ctx, tenant.ID+100)
	assert.True(t, apperr.IsNotFound(err))
}

func TestValidateTenantName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"ab", true},
		{"a1-b2", true},
		{"a", false},
		{"1abc", false},
		{"abc-", false},
		{"ABC", false},
		{"a_b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTenantName(tt.name)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperr.IsValidation(err))
			}
		})
	}
}

func TestListTenantsBefore(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	var ids []int64
	for _, name := range []string{"t-one", "t-two", "t-three", "t-four"} {
		tenant, err := s.CreateTenant(ctx, name, name)
		require.NoError(t, err)
		ids = append(ids, tenant.ID)
	}

	all, err := s.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, ids[3], all[0].ID)

	before := ids[3]
	page, err := s.ListTenantsBefore(ctx, &before, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID)
	assert.Equal(t, ids[1], page[1].ID)
}

func TestFirstVisits(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	for _, v := range []model.VisitHistory{
		{TenantID: 1, CompetitionID: "c1", PlayerID: "p1", CreatedAt: base.Add(time.Minute)},
		{TenantID: 1, CompetitionID: "c1", PlayerID: "p1", CreatedAt: base},
		{TenantID: 1, CompetitionID: "c1", PlayerID: "p2", CreatedAt: base.Add(time.Hour)},
		{TenantID: 1, CompetitionID: "c2", PlayerID: "p3", CreatedAt: base},
		{TenantID: 2, CompetitionID: "c1", PlayerID: "p4", CreatedAt: base},
	} {
		require.NoError(t, s.RecordVisit(ctx, v))
	}

	visits, err := s.FirstVisits(ctx, 1, "c1")
	require.NoError(t, err)

	got := map[string]time.Time{}
	for _, v := range visits {
		got[v.PlayerID] = v.FirstSeen
	}
	assert.Equal(t, map[string]time.Time{
		"p1": base,
		"p2": base.Add(time.Hour),
	}, got)
}

func TestDispenseIDIsUniqueAndHex(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ids, err := s.DispenseIDs(ctx, 20)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, id := range ids {
		assert.Regexp(t, `^[0-9a-f]+$`, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestDispenseIDKeepsGeneratorTableBounded(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	ids, err := s.DispenseIDs(ctx, 500)
	require.NoError(t, err)

	var rows int64
	require.NoError(t, s.DB.Model(&idGeneratorRow{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)

	last, err := strconv.ParseInt(ids[len(ids)-1], 16, 64)
	require.NoError(t, err)
	next, err := s.DispenseID(ctx)
	require.NoError(t, err)
	nextN, err := strconv.ParseInt(next, 16, 64)
	require.NoError(t, err)
	assert.Greater(t, nextN, last)
}

func TestDispenseIDRetriesConflicts(t *testing.T) {
	s := newTestStorage(t)
	var calls atomic.Int32
	s.insertID = func(context.Context) (int64, error) {
		if calls.Add(1) < 3 {
			return 0, errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return 255, nil
	}

	id, err := s.DispenseID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ff", id)
	assert.EqualValues(t, 3, calls.Load())
}

func TestDispenseIDExhausted(t *testing.T) {
	s := newTestStorage(t)
	s.maxDispenseAttempts = 5
	var calls atomic.Int32
	s.insertID = func(context.Context) (int64, error) {
		calls.Add(1)
		return 0, errors.New("database is locked")
	}

	_, err := s.DispenseID(context.Background())
	require.ErrorIs(t, err, apperr.ErrDispenseExhausted)
	assert.EqualValues(t, 5, calls.Load())
}

func TestDispenseIDStopsOnOtherErrors(t *testing.T) {
	s := newTestStorage(t)
	var calls atomic.Int32
	s.insertID = func(context.Context) (int64, error) {
		calls.Add(1)
		return 0, errors.New("disk I/O error")
	}

	_, err := s.DispenseID(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrDispenseExhausted)
	assert.EqualValues(t, 1, calls.Load())
}
