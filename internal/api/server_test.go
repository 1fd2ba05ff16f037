package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/mocks"

	"github.com/jdholdren/podscribe/internal/feeds"
	"github.com/jdholdren/podscribe/internal/migrations"
	"github.com/jdholdren/podscribe/internal/pipeline"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/sqlite"
)

type fakeOrchestrator struct {
	calls []string
}

func (f *fakeOrchestrator) RunWorkflow(_ context.Context, episodeID string) (pipeline.Report, error) {
	f.calls = append(f.calls, episodeID)
	return pipeline.Report{EpisodeID: episodeID, ScriptGenerated: true, Errors: []string{}}, nil
}

type testServer struct {
	*Server
	repo sqlite.Repo
	orch *fakeOrchestrator
	temp *mocks.Client
}

func newTestApiServer(t *testing.T) testServer {
	t.Helper()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	var (
		repo = sqlite.New(dbx)
		orch = &fakeOrchestrator{}
		temp = &mocks.Client{}
	)

	return testServer{
		Server: NewServer(ServerConfig{}, repo, feeds.NewIngestor(repo, nil), orch, temp),
		repo:   repo,
		orch:   orch,
		temp:   temp,
	}
}

func (s testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestPostFeeds(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/feeds", `{"url": "https://example.com/feed.xml"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	feed := decode[FeedResp](t, rec)
	assert.True(t, feed.IsActive)
	assert.Equal(t, "https://example.com/feed.xml", feed.URL)

	// Same url again
	rec = s.do(t, http.MethodPost, "/api/feeds", `{"url": "https://example.com/feed.xml"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, feed.ID, decode[FeedResp](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/feeds", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]FeedResp](t, rec), 1)
}

func TestPostFeeds_Invalid(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/feeds", `{"url": "ftp://example.com/feed.xml"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/feeds", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchFeed_Deactivate(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/feeds", `{"url": "https://example.com/feed.xml"}`)
	feed := decode[FeedResp](t, rec)

	rec = s.do(t, http.MethodPatch, "/api/feeds/"+feed.ID, `{"is_active": false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[FeedResp](t, rec).IsActive)

	rec = s.do(t, http.MethodPatch, "/api/feeds/nope", `{"is_active": false}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostEpisodes_DedupesTrackingParams(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/episodes", `{"audio_url": "https://cdn.example.com/ep.mp3?utm_source=rss"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	ep := decode[EpisodeResp](t, rec)
	assert.Equal(t, "https://cdn.example.com/ep.mp3", ep.URL)

	rec = s.do(t, http.MethodPost, "/api/episodes", `{"audio_url": "https://cdn.example.com/ep.mp3?fbclid=abc"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ep.ID, decode[EpisodeResp](t, rec).ID)

	rec = s.do(t, http.MethodGet, "/api/episodes/"+ep.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[EpisodeResp](t, rec).Transcript)
}

func TestGetEpisode_NotFound(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodGet, "/api/episodes/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPostEpisodeWorkflow_Wait(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/episodes", `{"audio_url": "https://cdn.example.com/ep.mp3"}`)
	ep := decode[EpisodeResp](t, rec)

	rec = s.do(t, http.MethodPost, "/api/episodes/"+ep.ID+"/workflow?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[pipeline.Report](t, rec)
	assert.True(t, report.ScriptGenerated)
	assert.Equal(t, []string{ep.ID}, s.orch.calls)
	s.temp.AssertNumberOfCalls(t, "ExecuteWorkflow", 0)
}

func TestPostEpisodeWorkflow_Queued(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/episodes", `{"audio_url": "https://cdn.example.com/ep.mp3"}`)
	ep := decode[EpisodeResp](t, rec)

	run := &mocks.WorkflowRun{}
	run.On("GetRunID").Return("run-1")
	s.temp.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, ep.ID).Return(run, nil)

	rec = s.do(t, http.MethodPost, "/api/episodes/"+ep.ID+"/workflow", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	started := decode[WorkflowStartedResp](t, rec)
	assert.Equal(t, "process-episode-"+ep.ID, started.WorkflowID)
	assert.Equal(t, "run-1", started.RunID)
	assert.Empty(t, s.orch.calls)
}

func TestPostEpisodeWorkflow_NotFound(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/episodes/missing/workflow?wait=true", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, s.orch.calls)
}

func TestPostTags(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/tags", `{"name": "Machine Learning", "color": "#3366ff"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	tag := decode[TagResp](t, rec)
	assert.Equal(t, "machine-learning", tag.Slug)
	assert.Equal(t, "#3366ff", tag.Color)

	rec = s.do(t, http.MethodPost, "/api/tags", `{"name": "Machine Learning"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/tags", `{"name": " ", "color": "blue"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Len(t, body["details"], 2)

	rec = s.do(t, http.MethodGet, "/api/tags", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]TagResp](t, rec), 1)
}

func TestGetFeedEpisodes_Paginates(t *testing.T) {
	s := newTestApiServer(t)
	ctx := context.Background()

	rec := s.do(t, http.MethodPost, "/api/feeds", `{"url": "https://example.com/feed.xml"}`)
	feed := decode[FeedResp](t, rec)
	for _, u := range []string{"a", "b", "c"} {
		_, _, err := s.repo.EnsureEpisode(ctx, podscribeEpisode(feed.ID, "https://cdn.example.com/"+u+".mp3"))
		require.NoError(t, err)
	}

	rec = s.do(t, http.MethodGet, "/api/feeds/"+feed.ID+"/episodes?limit=2&offset=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[FeedEpisodesResp](t, rec)
	assert.Len(t, resp.Episodes, 1)
	assert.Equal(t, 3, resp.Pagination.Total)
}

func TestMetrics(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func podscribeEpisode(feedID, url string) podscribe.Episode {
	return podscribe.Episode{FeedID: &feedID, URL: url}
}

func TestPostFeedsProcess_InactiveFeedReported(t *testing.T) {
	s := newTestApiServer(t)

	rec := s.do(t, http.MethodPost, "/api/feeds", `{"url": "https://example.com/feed.xml"}`)
	feed := decode[FeedResp](t, rec)
	s.do(t, http.MethodPatch, "/api/feeds/"+feed.ID, `{"is_active": false}`)

	// Nothing active, nothing fetched
	rec = s.do(t, http.MethodPost, "/api/feeds/process", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]feeds.Report](t, rec))
}
