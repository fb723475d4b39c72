package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. Satisfied by
// pgxmock.PgxPoolIface in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS provider_quotas (
	provider        TEXT PRIMARY KEY,
	limit_value     INTEGER NOT NULL,
	used_count      INTEGER NOT NULL DEFAULT 0,
	period_start    TIMESTAMPTZ NOT NULL,
	period_duration BIGINT NOT NULL,
	limit_type      TEXT NOT NULL DEFAULT 'daily'
);

CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	keyword        TEXT NOT NULL,
	locations      JSONB NOT NULL,
	target         INTEGER NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	download_link  TEXT,
	completed_in_s DOUBLE PRECISION,
	leads_count    INTEGER NOT NULL DEFAULT 0,
	message        TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) GetQuota(ctx context.Context, provider string) (*model.ProviderQuota, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT provider, limit_value, used_count, period_start, period_duration, limit_type
		 FROM provider_quotas WHERE provider = $1`, provider)

	q, err := scanQuotaRow(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: quota %s", provider)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get quota %s", provider)
	}
	return q, nil
}

func (s *PostgresStore) ListQuotas(ctx context.Context) ([]model.ProviderQuota, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT provider, limit_value, used_count, period_start, period_duration, limit_type
		 FROM provider_quotas ORDER BY provider`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list quotas")
	}
	defer rows.Close()

	var quotas []model.ProviderQuota
	for rows.Next() {
		q, err := scanQuotaRow(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan quota")
		}
		quotas = append(quotas, *q)
	}
	return quotas, eris.Wrap(rows.Err(), "postgres: iterate quotas")
}

func (s *PostgresStore) UpsertQuota(ctx context.Context, q model.ProviderQuota) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO provider_quotas (provider, limit_value, used_count, period_start, period_duration, limit_type)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (provider) DO UPDATE SET
			limit_value = EXCLUDED.limit_value,
			used_count = EXCLUDED.used_count,
			period_start = EXCLUDED.period_start,
			period_duration = EXCLUDED.period_duration,
			limit_type = EXCLUDED.limit_type`,
		q.Provider, q.LimitValue, q.UsedCount, q.PeriodStart.UTC(),
		int64(q.PeriodDuration/time.Second), string(q.LimitType),
	)
	return eris.Wrapf(err, "postgres: upsert quota %s", q.Provider)
}

func (s *PostgresStore) SetUsage(ctx context.Context, provider string, used int, periodStart time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE provider_quotas SET used_count = $1, period_start = $2 WHERE provider = $3`,
		used, periodStart.UTC(), provider,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set usage %s", provider)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: quota %s", provider)
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, job *model.Job) error {
	locs, err := json.Marshal(job.Locations)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal locations")
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, keyword, locations, target, status, leads_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.Keyword, locs, job.Target, string(job.Status), job.LeadsCount, now, now,
	)
	return eris.Wrapf(err, "postgres: insert job %s", job.ID)
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, message = $2, updated_at = $3 WHERE id = $4`,
		string(status), message, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, jobID string, leadsCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET leads_count = $1, updated_at = $2 WHERE id = $3`,
		leadsCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job progress %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) CompleteJob(ctx context.Context, jobID string, downloadLink string, completedInS float64, leadsCount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, download_link = $2, completed_in_s = $3, leads_count = $4, updated_at = $5 WHERE id = $6`,
		string(model.JobStatusCompleted), downloadLink, completedInS, leadsCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, keyword, locations, target, status, download_link, completed_in_s, leads_count, message, created_at, updated_at
		 FROM jobs WHERE id = $1`, jobID)

	job, err := scanPgJobRow(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, keyword, locations, target, status, download_link, completed_in_s, leads_count, message, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanPgJobRow(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: iterate jobs")
}

func scanPgJobRow(scan func(dest ...any) error) (*model.Job, error) {
	var (
		job          model.Job
		locsJSON     []byte
		status       string
		downloadLink *string
		completedIn  *float64
		message      *string
	)
	err := scan(&job.ID, &job.Keyword, &locsJSON, &job.Target, &status,
		&downloadLink, &completedIn, &job.LeadsCount, &message, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(locsJSON, &job.Locations); err != nil {
		return nil, eris.Wrap(err, "unmarshal locations")
	}
	job.Status = model.JobStatus(status)
	if downloadLink != nil {
		job.DownloadLink = *downloadLink
	}
	if completedIn != nil {
		job.CompletedInS = *completedIn
	}
	if message != nil {
		job.Message = *message
	}
	return &job, nil
}
