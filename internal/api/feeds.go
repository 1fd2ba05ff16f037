package api

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	pserrs "github.com/jdholdren/podscribe/internal/errors"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/serverutil"
	"github.com/jdholdren/podscribe/internal/worker"
)

type FeedResp struct {
	ID              string     `json:"id"`
	URL             string     `json:"url"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	IsActive        bool       `json:"is_active"`
	LastProcessedAt *time.Time `json:"last_processed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func apiFeed(f podscribe.Feed) FeedResp {
	var desc string
	if f.Description != nil {
		desc = *f.Description
	}

	return FeedResp{
		ID:              f.ID,
		URL:             f.URL,
		Name:            f.Name,
		Description:     desc,
		IsActive:        f.IsActive,
		LastProcessedAt: f.LastProcessedAt,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

func (s Server) getFeeds(w http.ResponseWriter, r *http.Request) error {
	all, err := s.repo.AllFeeds(r.Context())
	if err != nil {
		return err
	}

	resp := make([]FeedResp, 0, len(all))
	for _, f := range all {
		resp = append(resp, apiFeed(f))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

type PostFeedReq struct {
	URL string `json:"url"`
}

func (req PostFeedReq) Validate() error {
	if err := validateHTTPURL(req.URL); err != nil {
		return pserrs.E(http.StatusBadRequest, pserrs.Detail{Field: "url", Error: err.Error()}, "invalid feed")
	}

	return nil
}

// Creates the feed unless one with the url already exists.
func (s Server) postFeeds(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[PostFeedReq](r.Body)
	if err != nil {
		return err
	}

	feed, created, err := s.ingestor.EnsureFeed(r.Context(), req.URL)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return serverutil.WriteJSON(w, status, apiFeed(feed))
}

type PatchFeedReq struct {
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

func (PatchFeedReq) Validate() error { return nil }

func (s Server) patchFeed(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	feedID := mux.Vars(r)["feedID"]

	req, err := serverutil.DecodeValid[PatchFeedReq](r.Body)
	if err != nil {
		return err
	}

	if _, err := s.repo.Feed(ctx, feedID); errors.Is(err, podscribe.ErrNotFound) {
		return pserrs.E(http.StatusNotFound, "feed not found")
	} else if err != nil {
		return err
	}

	if err := s.repo.UpdateFeed(ctx, feedID, podscribe.UpdateFeedArgs{
		Name:     req.Name,
		IsActive: req.IsActive,
	}); err != nil {
		return err
	}

	feed, err := s.repo.Feed(ctx, feedID)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, apiFeed(feed))
}

// Removes the feed along with its episodes.
func (s Server) deleteFeed(w http.ResponseWriter, r *http.Request) error {
	feedID := mux.Vars(r)["feedID"]
	if err := s.repo.DeleteFeed(r.Context(), feedID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Ingests the feed through the worker and waits for the result.
func (s Server) postFeedProcess(w http.ResponseWriter, r *http.Request) error {
	feedID := mux.Vars(r)["feedID"]

	report, err := worker.TriggerProcessFeed(r.Context(), s.tempCli, feedID)
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, report)
}

// Ingests every active feed right here, without the worker and without
// starting any episode workflows.
func (s Server) postFeedsProcess(w http.ResponseWriter, r *http.Request) error {
	reports, err := s.ingestor.ProcessAllActiveFeeds(r.Context())
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusOK, reports)
}

type FeedEpisodesResp struct {
	Episodes   []EpisodeResp  `json:"episodes"`
	Pagination paginationMeta `json:"pagination"`
}

func (s Server) getFeedEpisodes(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	feedID := mux.Vars(r)["feedID"]

	if _, err := s.repo.Feed(ctx, feedID); errors.Is(err, podscribe.ErrNotFound) {
		return pserrs.E(http.StatusNotFound, "feed not found")
	} else if err != nil {
		return err
	}

	eps, err := s.repo.FeedEpisodes(ctx, feedID)
	if err != nil {
		return err
	}

	limit, offset := parsePaginationParams(r, 20, 100)
	page := paginate(eps, limit, offset)

	resp := FeedEpisodesResp{
		Episodes:   make([]EpisodeResp, 0, len(page)),
		Pagination: calculatePaginationMeta(limit, offset, len(eps)),
	}
	for _, ep := range page {
		resp.Episodes = append(resp.Episodes, apiEpisode(ep, nil))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) url")
	}

	return nil
}
