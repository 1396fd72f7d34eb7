package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var deleteQuery = regexp.QuoteMeta(deleteStaleStorage)

// cutoffNear matches a time.Time argument within a second of want.
type cutoffNear struct{ want time.Time }

func (c cutoffNear) Match(v driver.Value) bool {
	got, ok := v.(time.Time)
	if !ok {
		return false
	}
	d := got.Sub(c.want)
	return d > -time.Second && d < time.Second
}

func TestSweepStaleStorage(t *testing.T) {
	cutoff := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name        string
		expect      func(sqlmock.Sqlmock)
		wantRemoved int64
		wantErr     bool
	}{
		{
			name: "rows removed",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(deleteQuery).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 4))
			},
			wantRemoved: 4,
		},
		{
			name: "nothing stale",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(deleteQuery).WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 0))
			},
		},
		{
			name: "exec fails",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(deleteQuery).WithArgs(cutoff).WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
		{
			name: "rows affected fails",
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(deleteQuery).WithArgs(cutoff).
					WillReturnResult(sqlmock.NewErrorResult(errors.New("driver cannot count")))
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer conn.Close()
			tt.expect(mock)

			removed, err := SweepStaleStorage(context.Background(), conn, cutoff)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "sweep local storage")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRemoved, removed)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStartStaleStorageCleaner_LogsSweepResults(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	retention := 48 * time.Hour
	mock.ExpectExec(deleteQuery).
		WithArgs(cutoffNear{want: time.Now().Add(-retention)}).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(deleteQuery).
		WithArgs(sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartStaleStorageCleaner(ctx, conn, 10*time.Millisecond, retention, zap.New(core))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("failed to clean stale local storage").Len() > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	cleaned := logs.FilterMessage("cleaned stale local storage").All()
	require.Len(t, cleaned, 1)
	assert.Equal(t, int64(3), cleaned[0].ContextMap()["removed"])
	assert.Equal(t, zapcore.ErrorLevel, logs.FilterMessage("failed to clean stale local storage").All()[0].Level)
}

func TestStartStaleStorageCleaner_StopsWithContext(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	StartStaleStorageCleaner(ctx, conn, 5*time.Millisecond, time.Hour, zap.New(core))
	time.Sleep(30 * time.Millisecond)

	assert.Zero(t, logs.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}
