package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "leadgen.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestServeRouter(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	job := &model.Job{
		ID:        uuid.NewString(),
		Keyword:   "plumber",
		Locations: []string{"Austin, TX"},
		Target:    50,
	}
	require.NoError(t, st.CreateJob(ctx, job))
	require.NoError(t, st.UpsertQuota(ctx, model.ProviderQuota{
		Provider:       "yelp",
		LimitValue:     500,
		UsedCount:      20,
		PeriodStart:    time.Now().UTC(),
		PeriodDuration: 24 * time.Hour,
		LimitType:      model.LimitDaily,
	}))

	srv := httptest.NewServer(newServeRouter(st))
	defer srv.Close()

	t.Run("health", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("jobs list", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/jobs")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var jobs []model.Job
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
		require.Len(t, jobs, 1)
		assert.Equal(t, job.ID, jobs[0].ID)
		assert.Equal(t, model.JobStatusPending, jobs[0].Status)
	})

	t.Run("job by id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/jobs/" + job.ID)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.Job
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "plumber", got.Keyword)
		assert.Equal(t, []string{"Austin, TX"}, got.Locations)
	})

	t.Run("job not found", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/jobs/" + uuid.NewString())
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("quota", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/quota")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var avail struct {
			Available []string `json:"available"`
			Limits    map[string]struct {
				Available int `json:"available"`
				Total     int `json:"total"`
			} `json:"limits"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&avail))
		assert.Equal(t, []string{"yelp"}, avail.Available)
		assert.Equal(t, 480, avail.Limits["yelp"].Available)
		assert.Equal(t, 500, avail.Limits["yelp"].Total)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, srv.URL+"/jobs", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	})
}
