// Package store persists the provider usage ledger and scrape job
// records, with SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadgen-cli/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = eris.New("store: not found")

// Store is the persistence interface shared by the quota tracker, the
// scrape command, and the status API.
type Store interface {
	// Quota ledger
	GetQuota(ctx context.Context, provider string) (*model.ProviderQuota, error)
	ListQuotas(ctx context.Context) ([]model.ProviderQuota, error)
	UpsertQuota(ctx context.Context, q model.ProviderQuota) error
	// SetUsage overwrites a provider's used count and period start.
	// Returns ErrNotFound if the ledger has no row for the provider.
	SetUsage(ctx context.Context, provider string, used int, periodStart time.Time) error

	// Job records
	CreateJob(ctx context.Context, job *model.Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus, message string) error
	UpdateJobProgress(ctx context.Context, jobID string, leadsCount int) error
	CompleteJob(ctx context.Context, jobID string, downloadLink string, completedInS float64, leadsCount int) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, limit int) ([]model.Job, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
