package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS provider_quotas (
	provider        TEXT PRIMARY KEY,
	limit_value     INTEGER NOT NULL,
	used_count      INTEGER NOT NULL DEFAULT 0,
	period_start    DATETIME NOT NULL,
	period_duration INTEGER NOT NULL,
	limit_type      TEXT NOT NULL DEFAULT 'daily'
);

CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	keyword        TEXT NOT NULL,
	locations      TEXT NOT NULL,
	target         INTEGER NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	download_link  TEXT,
	completed_in_s REAL,
	leads_count    INTEGER NOT NULL DEFAULT 0,
	message        TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetQuota(ctx context.Context, provider string) (*model.ProviderQuota, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT provider, limit_value, used_count, period_start, period_duration, limit_type
		 FROM provider_quotas WHERE provider = ?`, provider)

	q, err := scanQuotaRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: quota %s", provider)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get quota %s", provider)
	}
	return q, nil
}

func (s *SQLiteStore) ListQuotas(ctx context.Context) ([]model.ProviderQuota, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, limit_value, used_count, period_start, period_duration, limit_type
		 FROM provider_quotas ORDER BY provider`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list quotas")
	}
	defer rows.Close()

	var quotas []model.ProviderQuota
	for rows.Next() {
		q, err := scanQuotaRow(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan quota")
		}
		quotas = append(quotas, *q)
	}
	return quotas, eris.Wrap(rows.Err(), "sqlite: iterate quotas")
}

func (s *SQLiteStore) UpsertQuota(ctx context.Context, q model.ProviderQuota) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provider_quotas (provider, limit_value, used_count, period_start, period_duration, limit_type)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(provider) DO UPDATE SET
			limit_value = excluded.limit_value,
			used_count = excluded.used_count,
			period_start = excluded.period_start,
			period_duration = excluded.period_duration,
			limit_type = excluded.limit_type`,
		q.Provider, q.LimitValue, q.UsedCount, q.PeriodStart.UTC(),
		int64(q.PeriodDuration/time.Second), string(q.LimitType),
	)
	return eris.Wrapf(err, "sqlite: upsert quota %s", q.Provider)
}

func (s *SQLiteStore) SetUsage(ctx context.Context, provider string, used int, periodStart time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_quotas SET used_count = ?, period_start = ? WHERE provider = ?`,
		used, periodStart.UTC(), provider,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set usage %s", provider)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: quota %s", provider)
	}
	return nil
}

func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.Job) error {
	locs, err := json.Marshal(job.Locations)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal locations")
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = model.JobStatusPending
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, keyword, locations, target, status, leads_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Keyword, string(locs), job.Target, string(job.Status), job.LeadsCount, now, now,
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, message = ?, updated_at = ? WHERE id = ?`,
		string(status), message, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkAffected(res, jobID)
}

func (s *SQLiteStore) UpdateJobProgress(ctx context.Context, jobID string, leadsCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET leads_count = ?, updated_at = ? WHERE id = ?`,
		leadsCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job progress %s", jobID)
	}
	return checkAffected(res, jobID)
}

func (s *SQLiteStore) CompleteJob(ctx context.Context, jobID string, downloadLink string, completedInS float64, leadsCount int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, download_link = ?, completed_in_s = ?, leads_count = ?, updated_at = ?
		 WHERE id = ?`,
		string(model.JobStatusCompleted), downloadLink, completedInS, leadsCount, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete job %s", jobID)
	}
	return checkAffected(res, jobID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, keyword, locations, target, status, download_link, completed_in_s, leads_count, message, created_at, updated_at
		 FROM jobs WHERE id = ?`, jobID)

	job, err := scanJobRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: job %s", jobID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, keyword, locations, target, status, download_link, completed_in_s, leads_count, message, created_at, updated_at
		 FROM jobs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJobRow(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: iterate jobs")
}

func scanQuotaRow(scan func(dest ...any) error) (*model.ProviderQuota, error) {
	var (
		q           model.ProviderQuota
		durationSec int64
		limitType   string
	)
	if err := scan(&q.Provider, &q.LimitValue, &q.UsedCount, &q.PeriodStart, &durationSec, &limitType); err != nil {
		return nil, err
	}
	q.PeriodDuration = time.Duration(durationSec) * time.Second
	q.LimitType = model.LimitType(limitType)
	return &q, nil
}

func scanJobRow(scan func(dest ...any) error) (*model.Job, error) {
	var (
		job          model.Job
		locsJSON     string
		status       string
		downloadLink sql.NullString
		completedIn  sql.NullFloat64
		message      sql.NullString
	)
	err := scan(&job.ID, &job.Keyword, &locsJSON, &job.Target, &status,
		&downloadLink, &completedIn, &job.LeadsCount, &message, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(locsJSON), &job.Locations); err != nil {
		return nil, eris.Wrap(err, "unmarshal locations")
	}
	job.Status = model.JobStatus(status)
	job.DownloadLink = downloadLink.String
	job.CompletedInS = completedIn.Float64
	job.Message = message.String
	return &job, nil
}

func checkAffected(res sql.Result, jobID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: job %s", jobID)
	}
	return nil
}
