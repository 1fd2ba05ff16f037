package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	pserrs "github.com/jdholdren/podscribe/internal/errors"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/serverutil"
	"github.com/jdholdren/podscribe/internal/worker"
)

type EpisodeResp struct {
	ID         string     `json:"id"`
	FeedID     *string    `json:"feed_id"`
	URL        string     `json:"url"`
	Title      *string    `json:"title"`
	ReleasedAt *time.Time `json:"released_at"`
	Transcript *string    `json:"transcript"`
	Script     *string    `json:"script"`
	Summary    *string    `json:"summary"`
	Tags       []TagResp  `json:"tags,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func apiEpisode(ep podscribe.Episode, tags []podscribe.Tag) EpisodeResp {
	resp := EpisodeResp{
		ID:         ep.ID,
		FeedID:     ep.FeedID,
		URL:        ep.URL,
		Title:      ep.Title,
		ReleasedAt: ep.ReleasedAt,
		Transcript: ep.Transcript,
		Script:     ep.Script,
		Summary:    ep.Summary,
		CreatedAt:  ep.CreatedAt,
		UpdatedAt:  ep.UpdatedAt,
	}
	for _, t := range tags {
		resp.Tags = append(resp.Tags, apiTag(t))
	}

	return resp
}

type PostEpisodeReq struct {
	AudioURL string `json:"audio_url"`
}

func (req PostEpisodeReq) Validate() error {
	if err := validateHTTPURL(req.AudioURL); err != nil {
		return pserrs.E(http.StatusBadRequest, pserrs.Detail{Field: "audio_url", Error: err.Error()}, "invalid episode")
	}

	return nil
}

// Registers a standalone episode by its audio url. Posting the same audio
// twice, even with different tracking params, returns the first record.
func (s Server) postEpisodes(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[PostEpisodeReq](r.Body)
	if err != nil {
		return err
	}

	ep, created, err := s.repo.EnsureEpisode(r.Context(), podscribe.Episode{URL: req.AudioURL})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return serverutil.WriteJSON(w, status, apiEpisode(ep, nil))
}

func (s Server) getEpisode(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	episodeID := mux.Vars(r)["episodeID"]

	ep, err := s.repo.Episode(ctx, episodeID)
	if errors.Is(err, podscribe.ErrNotFound) {
		return pserrs.E(http.StatusNotFound, "episode not found")
	}
	if err != nil {
		return err
	}
	tags, err := s.repo.EpisodeTags(ctx, episodeID)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiEpisode(ep, tags))
}

type WorkflowStartedResp struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

// Processes the episode. With ?wait=true it runs here and responds with the
// report, otherwise it's queued on the worker.
func (s Server) postEpisodeWorkflow(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	episodeID := mux.Vars(r)["episodeID"]

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	if _, err := s.repo.Episode(ctx, episodeID); errors.Is(err, podscribe.ErrNotFound) {
		return pserrs.E(http.StatusNotFound, "episode not found")
	} else if err != nil {
		return err
	}

	if wait {
		report, err := s.orch.RunWorkflow(ctx, episodeID)
		if err != nil {
			return err
		}
		return serverutil.WriteJSON(w, http.StatusOK, report)
	}

	runID, _, err := worker.TriggerProcessEpisode(ctx, s.tempCli, episodeID, false)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusAccepted, WorkflowStartedResp{
		WorkflowID: worker.EpisodeWorkflowID(episodeID),
		RunID:      runID,
	})
}
