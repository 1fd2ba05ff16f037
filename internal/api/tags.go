package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	pserrs "github.com/jdholdren/podscribe/internal/errors"
	"github.com/jdholdren/podscribe/internal/podscribe"
	"github.com/jdholdren/podscribe/internal/serverutil"
)

type TagResp struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

func apiTag(t podscribe.Tag) TagResp {
	resp := TagResp{ID: t.ID, Name: t.Name, Slug: t.Slug}
	if t.Description != nil {
		resp.Description = *t.Description
	}
	if t.Color != nil {
		resp.Color = *t.Color
	}

	return resp
}

func (s Server) getTags(w http.ResponseWriter, r *http.Request) error {
	all, err := s.repo.AllTags(r.Context())
	if err != nil {
		return err
	}

	resp := make([]TagResp, 0, len(all))
	for _, t := range all {
		resp = append(resp, apiTag(t))
	}

	return serverutil.WriteJSON(w, http.StatusOK, resp)
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type PostTagReq struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

func (req PostTagReq) Validate() error {
	var details []pserrs.Detail
	if strings.TrimSpace(req.Name) == "" {
		details = append(details, pserrs.Detail{Field: "name", Error: "required"})
	}
	if req.Color != nil && !hexColor.MatchString(*req.Color) {
		details = append(details, pserrs.Detail{Field: "color", Error: "must look like #a1b2c3"})
	}
	if len(details) > 0 {
		return pserrs.E(http.StatusBadRequest, details, "invalid tag")
	}

	return nil
}

func (s Server) postTags(w http.ResponseWriter, r *http.Request) error {
	req, err := serverutil.DecodeValid[PostTagReq](r.Body)
	if err != nil {
		return err
	}

	tag, err := s.repo.InsertTag(r.Context(), podscribe.Tag{
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Description: req.Description,
		Color:       req.Color,
	})
	if errors.Is(err, podscribe.ErrConflict) {
		return pserrs.E(http.StatusConflict, "tag already exists")
	}
	if err != nil {
		return err
	}

	return serverutil.WriteJSON(w, http.StatusCreated, apiTag(tag))
}
