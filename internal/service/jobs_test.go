package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/raphaelgruber/docsum/internal/apitest"
	"github.com/raphaelgruber/docsum/internal/client"
	"github.com/raphaelgruber/docsum/internal/credential"
	"github.com/raphaelgruber/docsum/internal/gateway"
	"github.com/raphaelgruber/docsum/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "tok"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient returns a client for srv with a session that may hold token.
func newTestClient(t *testing.T, srv *apitest.Server, token string) (*client.Client, *credential.Session) {
	t.Helper()
	session := credential.NewSession(credential.NewMemoryStore())
	if token != "" {
		require.NoError(t, session.Set(token))
	}
	gw := gateway.New(srv.URL, session, gateway.WithLogger(testLogger()))
	return client.New(gw), session
}

func newTracker(t *testing.T) (*JobTracker, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t, testToken)
	c, _ := newTestClient(t, srv, testToken)
	return NewJobTracker(c, testLogger()), srv
}

func ids(jobs []models.Job) []models.JobID {
	out := make([]models.JobID, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func TestRefreshOrdersSucceededFirst(t *testing.T) {
	tracker, srv := newTracker(t)
	srv.SetTasks(
		apitest.Task{ID: 1, Status: "PENDING"},
		apitest.Task{ID: 2, Status: "SUCCESS"},
		apitest.Task{ID: 3, Status: "SUCCESS"},
	)

	jobs, err := tracker.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.JobID{"2", "3", "1"}, ids(jobs))
	assert.Equal(t, models.JobStatusSucceeded, jobs[0].Status)
	assert.Equal(t, models.JobStatusPending, jobs[2].Status)
	assert.Equal(t, jobs, tracker.Jobs())
}

func TestRefreshMapsStatuses(t *testing.T) {
	tracker, srv := newTracker(t)
	srv.SetTasks(
		apitest.Task{ID: 1, Status: "FAILURE"},
		apitest.Task{ID: 2, Status: "RETRY"},
		apitest.Task{ID: 3},
		apitest.Task{ID: 4, Status: "success"},
	)

	jobs, err := tracker.Refresh(context.Background())
	require.NoError(t, err)

	got := map[models.JobID]models.JobStatus{}
	for _, j := range jobs {
		got[j.ID] = j.Status
	}
	assert.Equal(t, map[models.JobID]models.JobStatus{
		"1": models.JobStatusFailed,
		"2": models.JobStatusUnknown,
		"3": models.JobStatusUnknown,
		"4": models.JobStatusSucceeded,
	}, got)
	assert.Equal(t, models.JobID("4"), jobs[0].ID)
}

func TestRefreshFailureLeavesListUntouched(t *testing.T) {
	tracker, srv := newTracker(t)
	srv.SetTasks(apitest.Task{ID: 1, Status: "PENDING"})
	_, err := tracker.Refresh(context.Background())
	require.NoError(t, err)

	srv.Fail("/user/tasks", http.StatusInternalServerError)
	_, err = tracker.Refresh(context.Background())

	assert.ErrorIs(t, err, gateway.ErrServer)
	assert.Equal(t, []models.JobID{"1"}, ids(tracker.Jobs()))
}

func TestSubmitAppendsPendingJob(t *testing.T) {
	tracker, srv := newTracker(t)
	srv.SetTasks(apitest.Task{ID: 1, Status: "SUCCESS"})
	_, err := tracker.Refresh(context.Background())
	require.NoError(t, err)

	job, err := tracker.Submit(context.Background(), "a.docx", strings.NewReader("text"))
	require.NoError(t, err)

	// The fake reports SUCCESS at creation; it must not be trusted.
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, models.JobID("101"), job.ID)

	jobs := tracker.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, job, jobs[1])
}

func TestSubmitFailureLeavesListUntouched(t *testing.T) {
	tests := []struct {
		name  string
		setup func(srv *apitest.Server) string
		kind  error
	}{
		{
			name: "server error",
			setup: func(srv *apitest.Server) string {
				srv.Fail("/generate_summary", http.StatusInternalServerError)
				return srv.URL
			},
			kind: gateway.ErrServer,
		},
		{
			name: "transport failure",
			setup: func(srv *apitest.Server) string {
				return "http://127.0.0.1:1"
			},
			kind: gateway.ErrTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := apitest.NewServer(t, testToken)
			baseURL := tt.setup(srv)

			session := credential.NewSession(credential.NewMemoryStore())
			require.NoError(t, session.Set(testToken))
			c := client.New(gateway.New(baseURL, session, gateway.WithLogger(testLogger())))
			tracker := NewJobTracker(c, testLogger())

			_, err := tracker.Submit(context.Background(), "a.docx", strings.NewReader("text"))
			assert.ErrorIs(t, err, ErrInternal)
			assert.ErrorIs(t, err, tt.kind)
			assert.Empty(t, tracker.Jobs())
		})
	}
}

func TestSubmitFile(t *testing.T) {
	tracker, srv := newTracker(t)
	path := filepath.Join(t.TempDir(), "report.docx")
	require.NoError(t, os.WriteFile(path, []byte("body"), 0o600))

	_, err := tracker.SubmitFile(context.Background(), path)
	require.NoError(t, err)

	uploads := srv.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "report.docx", uploads[0].Filename)
	assert.Equal(t, "body", uploads[0].Content)
}

func TestSubmitFileMissing(t *testing.T) {
	tracker, srv := newTracker(t)

	_, err := tracker.SubmitFile(context.Background(), filepath.Join(t.TempDir(), "nope.docx"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInternal)
	assert.Empty(t, srv.Uploads())
}

func TestFetchResultRequiresSucceededJob(t *testing.T) {
	tracker, srv := newTracker(t)
	srv.SetTasks(
		apitest.Task{ID: 1, Status: "PENDING"},
		apitest.Task{ID: 2, Status: "FAILURE"},
		apitest.Task{ID: 3, Status: "BOGUS"},
	)
	srv.SetSummary("1", "should not be read")
	_, err := tracker.Refresh(context.Background())
	require.NoError(t, err)

	for _, id := range []models.JobID{"1", "2", "3", "99"} {
		_, err := tracker.FetchResult(context.Background(), id)
		assert.ErrorIs(t, err, ErrTaskNotCompleted, "job %s", id)
	}
	assert.Zero(t, srv.Calls("/user/get_summary"))
}

func TestFetchResult(t *testing.T) {
	tracker, srv := newTracker(t)
	srv.SetTasks(apitest.Task{ID: 1, Status: "PENDING"}, apitest.Task{ID: 2, Status: "SUCCESS"})
	srv.SetSummary("2", "Summary text.")
	_, err := tracker.Refresh(context.Background())
	require.NoError(t, err)
	before := tracker.Jobs()

	result, err := tracker.FetchResult(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Summary text.", result)
	assert.Equal(t, "2", srv.LastQuery("/user/get_summary")["task_id"])
	assert.Equal(t, before, tracker.Jobs())
}

func TestFetchResultServerError(t *testing.T) {
	tracker, srv := newTracker(t)
	srv.SetTasks(apitest.Task{ID: 2, Status: "SUCCESS"})
	_, err := tracker.Refresh(context.Background())
	require.NoError(t, err)

	_, err = tracker.FetchResult(context.Background(), "2")
	assert.ErrorIs(t, err, gateway.ErrServer)
}

func TestRefreshAfterSubmitReplacesList(t *testing.T) {
	tracker, srv := newTracker(t)

	_, err := tracker.Submit(context.Background(), "a.docx", strings.NewReader("x"))
	require.NoError(t, err)
	require.Len(t, tracker.Jobs(), 1)

	srv.SetTasks(apitest.Task{ID: 101, Status: "SUCCESS"}, apitest.Task{ID: 7, Status: "PENDING"})
	_, err = tracker.Refresh(context.Background())
	require.NoError(t, err)

	jobs := tracker.Jobs()
	assert.Equal(t, []models.JobID{"101", "7"}, ids(jobs))
	assert.Equal(t, models.JobStatusSucceeded, jobs[0].Status)
}

func TestConcurrentSubmitsEachAppendOnce(t *testing.T) {
	tracker, srv := newTracker(t)
	const n = 10

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.Submit(context.Background(), fmt.Sprintf("doc-%d.docx", i), strings.NewReader("x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	jobs := tracker.Jobs()
	assert.Len(t, jobs, n)
	assert.Len(t, srv.Uploads(), n)

	seen := map[models.JobID]bool{}
	for _, j := range jobs {
		assert.False(t, seen[j.ID], "duplicate job %s", j.ID)
		seen[j.ID] = true
		assert.Equal(t, models.JobStatusPending, j.Status)
	}
}

func TestAllTerminal(t *testing.T) {
	tracker, srv := newTracker(t)
	assert.True(t, tracker.AllTerminal())

	srv.SetTasks(apitest.Task{ID: 1, Status: "PENDING"}, apitest.Task{ID: 2, Status: "SUCCESS"})
	_, err := tracker.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, tracker.AllTerminal())

	srv.SetTasks(apitest.Task{ID: 1, Status: "FAILURE"}, apitest.Task{ID: 2, Status: "SUCCESS"})
	_, err = tracker.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, tracker.AllTerminal())
}

// blockingAPI lets a test control when a list request completes.
type blockingAPI struct {
	release chan struct{}
	tasks   []client.Task
}

func (b *blockingAPI) GenerateSummary(context.Context, string, io.Reader) (models.JobID, error) {
	return "new", nil
}

func (b *blockingAPI) ListTasks(ctx context.Context) ([]client.Task, error) {
	select {
	case <-b.release:
		return b.tasks, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blockingAPI) GetSummary(context.Context, models.JobID) (string, error) {
	return "", errors.New("unexpected call")
}

func TestLateRefreshReplacesEarlierSubmit(t *testing.T) {
	api := &blockingAPI{release: make(chan struct{}), tasks: []client.Task{{ID: "1", Status: "PENDING"}}}
	tracker := NewJobTracker(api, testLogger())

	done := make(chan error, 1)
	go func() {
		_, err := tracker.Refresh(context.Background())
		done <- err
	}()

	_, err := tracker.Submit(context.Background(), "a.docx", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, []models.JobID{"new"}, ids(tracker.Jobs()))

	close(api.release)
	require.NoError(t, <-done)
	assert.Equal(t, []models.JobID{"1"}, ids(tracker.Jobs()))
}
