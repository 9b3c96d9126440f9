package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"outagewatch/internal/types"
)

func isUpdate(sql string) bool { return strings.HasPrefix(strings.TrimSpace(sql), "UPDATE") }
func isSelect(sql string) bool { return strings.HasPrefix(strings.TrimSpace(sql), "SELECT active") }

func TestOutageRepository_Create(t *testing.T) {
	db := new(mockDBTX)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		return len(args) == 3 && args[0] == int64(3) && args[1] == (*time.Time)(nil)
	})).Return(rowOf(int64(11), start))

	o := &types.OutageEvent{SiteID: 3}
	require.NoError(t, NewOutageRepository(db).Create(ctx, o))

	assert.Equal(t, int64(11), o.ID)
	assert.Equal(t, start, o.StartTime)
	assert.True(t, o.Active)
	assert.Nil(t, o.EndTime)
}

func TestOutageRepository_Resolve(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	t.Run("success", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", ctx, mock.MatchedBy(isUpdate), []any{int64(11), end}).
			Return(rowOf(int64(11), int64(3), start, end, false, "fibre cut"))

		o, err := NewOutageRepository(db).Resolve(ctx, 11, end)
		require.NoError(t, err)
		require.NotNil(t, o.EndTime)
		assert.Equal(t, end, *o.EndTime)
		assert.False(t, o.Active)
		assert.True(t, o.Resolved())
		assert.Equal(t, "fibre cut", o.Cause)
	})

	t.Run("not found", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", ctx, mock.MatchedBy(isUpdate), mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})
		db.On("QueryRow", ctx, mock.MatchedBy(isSelect), []any{int64(99)}).Return(&mockRow{scanErr: pgx.ErrNoRows})

		_, err := NewOutageRepository(db).Resolve(ctx, 99, end)

		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeNotFoundOutage, appErr.Code)
		db.AssertExpectations(t)
	})

	t.Run("already resolved", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", ctx, mock.MatchedBy(isUpdate), mock.Anything).Return(&mockRow{scanErr: pgx.ErrNoRows})
		db.On("QueryRow", ctx, mock.MatchedBy(isSelect), []any{int64(11)}).Return(rowOf(false))

		_, err := NewOutageRepository(db).Resolve(ctx, 11, end)

		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeConflictOutageResolved, appErr.Code)
		assert.Equal(t, 409, appErr.HTTPStatus())
	})

	t.Run("database error", func(t *testing.T) {
		db := new(mockDBTX)
		db.On("QueryRow", ctx, mock.MatchedBy(isUpdate), mock.Anything).Return(&mockRow{scanErr: errors.New("timeout")})

		_, err := NewOutageRepository(db).Resolve(ctx, 11, end)

		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
		db.AssertNotCalled(t, "QueryRow", ctx, mock.MatchedBy(isSelect), mock.Anything)
	})
}

func TestOutageRepository_ListBySite(t *testing.T) {
	db := new(mockDBTX)
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	rows := newMockRows([][]any{
		{int64(1), int64(3), start, end, false, nil},
		{int64(2), int64(3), start.Add(24 * time.Hour), nil, true, "power"},
	})
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{int64(3)}).Return(rows, nil)

	outages, err := NewOutageRepository(db).ListBySite(ctx, 3)
	require.NoError(t, err)
	require.Len(t, outages, 2)

	assert.Equal(t, end, *outages[0].EndTime)
	assert.Nil(t, outages[1].EndTime)
	assert.True(t, outages[1].Active)
	assert.Equal(t, "power", outages[1].Cause)
}

func TestOutageRepository_ListAll_QueryError(t *testing.T) {
	db := new(mockDBTX)
	ctx := context.Background()
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(nil, errors.New("boom"))

	_, err := NewOutageRepository(db).ListAll(ctx)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}
