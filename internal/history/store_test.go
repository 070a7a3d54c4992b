package history

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/cognitive/internal/dualmode"
	"github.com/harrison/cognitive/internal/models"
)

var base = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{"file with nested directories", filepath.Join(t.TempDir(), "a", "b", "history.db"), false},
		{"in memory", ":memory:", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			version, err := s.SchemaVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, len(migrations), version)
			assert.Equal(t, tt.dbPath, s.Path())
		})
	}
}

func TestOpenTwiceKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, models.RunRecord{RunID: "r1", Tool: "t", Mode: models.ModeIDE, Status: models.StatusSuccess, Timestamp: base}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r1", runs[0].RunID)
}

func TestRecordAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	records := []models.RunRecord{
		{RunID: "a", Tool: "tests", Mode: models.ModeIDE, Status: models.StatusSuccess, Duration: 1500 * time.Millisecond, Timestamp: base},
		{RunID: "b", Tool: "tests", Mode: models.ModeAPI, Status: models.StatusError, Provider: "openai", Error: "provider failure: boom", Duration: 20 * time.Millisecond, Timestamp: base.Add(time.Minute)},
		{RunID: "c", Tool: "tests", Mode: models.ModeCI, Status: models.StatusSuccess, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		require.NoError(t, s.Record(ctx, rec))
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].RunID)
	assert.Equal(t, "b", runs[1].RunID)

	b := runs[1]
	assert.NotZero(t, b.ID)
	assert.Equal(t, models.ModeAPI, b.Mode)
	assert.Equal(t, models.StatusError, b.Status)
	assert.Equal(t, "openai", b.Provider)
	assert.Equal(t, "provider failure: boom", b.Error)
	assert.Equal(t, 20*time.Millisecond, b.Duration)
	assert.True(t, base.Add(time.Minute).Equal(b.Timestamp))

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 1500*time.Millisecond, all[2].Duration)

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.Status]int{models.StatusSuccess: 2, models.StatusError: 1}, counts)
}

func TestRecordErrors(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	assert.Error(t, s.Record(ctx, models.RunRecord{}))

	require.NoError(t, s.Record(ctx, models.RunRecord{RunID: "dup", Mode: models.ModeIDE, Status: models.StatusSuccess}))
	assert.Error(t, s.Record(ctx, models.RunRecord{RunID: "dup", Mode: models.ModeIDE, Status: models.StatusSuccess}))
}

func TestRecordDefaultsTimestamp(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	require.NoError(t, s.Record(ctx, models.RunRecord{RunID: "now", Mode: models.ModeCI, Status: models.StatusSuccess}))

	runs, err := s.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Timestamp.After(before))
}

func TestConcurrentRecords(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.Record(ctx, models.RunRecord{RunID: fmt.Sprintf("run-%d", i), Mode: models.ModeCI, Status: models.StatusSuccess, Timestamp: base})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	counts, err := s.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, counts[models.StatusSuccess])
}

type ciProcessor struct{}

func (ciProcessor) AnalyzeForCI(ctx context.Context, data interface{}) (*dualmode.CIAnalysis, error) {
	return &dualmode.CIAnalysis{Summary: "ok"}, nil
}

func TestStoreAsDispatcherRecorder(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var out []byte
	d := dualmode.New("history-test", ciProcessor{}, dualmode.Config{Mode: models.ModeCI},
		dualmode.WithRecorder(s),
		dualmode.WithOutput(writerFunc(func(p []byte) (int, error) {
			out = append(out, p...)
			return len(p), nil
		})),
	)

	result, err := d.Process(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, result.Status)
	assert.Contains(t, string(out), "CI PASSED")

	runs, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "history-test", runs[0].Tool)
	assert.Equal(t, models.ModeCI, runs[0].Mode)
	assert.NotEmpty(t, runs[0].RunID)
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
