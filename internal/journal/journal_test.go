package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Journal {
	t.Helper()
	path := filepath.Join(t.TempDir(), "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndListRuns(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute)
	end := time.Now()
	require.NoError(t, j.RecordRun(ctx, Run{
		ID: "run-1", StartedAt: start, FinishedAt: end,
		Outcome: "Success", Steps: 10, StackPaths: "a.json", ReportJSON: `{"outcome":"Success"}`,
	}))
	require.NoError(t, j.RecordRun(ctx, Run{
		ID: "run-2", StartedAt: start.Add(time.Second), FinishedAt: end.Add(time.Second),
		Outcome: "Aborted", Steps: 3, StackPaths: "b.json", ReportJSON: `{"outcome":"Aborted"}`,
	}))

	runs, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Most recent first.
	require.Equal(t, "run-2", runs[0].ID)
	require.Equal(t, "run-1", runs[1].ID)
}

func TestGetRunNotFound(t *testing.T) {
	j := openTest(t)
	_, err := j.GetRun(context.Background(), "does-not-exist")
	require.Error(t, err)
}

func TestGetRun(t *testing.T) {
	j := openTest(t)
	ctx := context.Background()
	require.NoError(t, j.RecordRun(ctx, Run{
		ID: "run-x", StartedAt: time.Now(), FinishedAt: time.Now(),
		Outcome: "Success", Steps: 5, StackPaths: "x.json", ReportJSON: `{}`,
	}))

	r, err := j.GetRun(ctx, "run-x")
	require.NoError(t, err)
	require.Equal(t, "run-x", r.ID)
	require.EqualValues(t, 5, r.Steps)
}
