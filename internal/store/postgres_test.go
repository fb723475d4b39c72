package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_GetQuota(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	start := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT provider, limit_value, used_count, period_start, period_duration, limit_type FROM provider_quotas WHERE provider = \$1`).
		WithArgs("places").
		WillReturnRows(pgxmock.NewRows([]string{"provider", "limit_value", "used_count", "period_start", "period_duration", "limit_type"}).
			AddRow("places", 1000, 25, start, int64(86400), "daily"))

	q, err := s.GetQuota(context.Background(), "places")
	require.NoError(t, err)
	assert.Equal(t, 1000, q.LimitValue)
	assert.Equal(t, 25, q.UsedCount)
	assert.Equal(t, 24*time.Hour, q.PeriodDuration)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetQuota_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT provider, limit_value, used_count`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetQuota(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetUsage_MissingProvider(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE provider_quotas SET used_count = \$1, period_start = \$2 WHERE provider = \$3`).
		WithArgs(10, pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.SetUsage(context.Background(), "ghost", 10, time.Now())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs("job-1", "dentist", pgxmock.AnyArg(), 50, "pending", 0, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	job := &model.Job{ID: "job-1", Keyword: "dentist", Locations: []string{"Austin"}, Target: 50}
	require.NoError(t, s.CreateJob(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteJob(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE jobs SET status = \$1, download_link = \$2`).
		WithArgs("completed", "/out/leads.csv", 12.5, 40, pgxmock.AnyArg(), "job-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.CompleteJob(context.Background(), "job-1", "/out/leads.csv", 12.5, 40))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListQuotas(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT provider, limit_value, used_count, period_start, period_duration, limit_type FROM provider_quotas ORDER BY provider`).
		WillReturnRows(pgxmock.NewRows([]string{"provider", "limit_value", "used_count", "period_start", "period_duration", "limit_type"}).
			AddRow("foursquare", 950, 0, now, int64(86400), "daily").
			AddRow("places", 1000, 100, now, int64(2592000), "monthly"))

	quotas, err := s.ListQuotas(context.Background())
	require.NoError(t, err)
	require.Len(t, quotas, 2)
	assert.Equal(t, "foursquare", quotas[0].Provider)
	assert.Equal(t, model.LimitMonthly, quotas[1].LimitType)
	assert.NoError(t, mock.ExpectationsWereMet())
}
