package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mbolis/survey3/database"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/model"
)

// AddResponse uploads the answers as one blob and records the response.
func (s *Service) AddResponse(ctx context.Context, user *model.User, req model.AddResponseRequest) (*model.AddedResponse, error) {
	survey, err := s.store.FindSurvey(ctx, req.Survey)
	if err != nil {
		return nil, lookupError(err, "Survey")
	}
	if survey.Ended(s.now()) {
		return nil, httpx.BadRequest("Survey has ended")
	}

	content := model.ResponseContent{
		Survey: model.ResponseSurvey{
			Name:        survey.Name,
			Description: survey.Description,
		},
		User: model.ResponseUser{
			Name:    user.Name,
			Address: user.Address,
		},
		Response: req.Response,
	}

	log.Debugf("response.add: uploading response to %s", survey.Slug)
	cid, err := s.pinner.Put(ctx, responseFile(user.Address, survey.Slug), content)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Error uploading content")
	}

	resp := &model.Response{
		Survey:      survey.ID,
		User:        user.ID,
		ResponseCID: cid,
		CreatedAt:   s.now().UTC(),
	}
	err = s.store.CreateResponse(ctx, resp)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to create response")
	}

	return &model.AddedResponse{CID: cid, Response: resp, Content: content, Survey: survey}, nil
}

// GetResponse returns a response visible to user: one they submitted, or
// one submitted to a survey they own.
func (s *Service) GetResponse(ctx context.Context, user *model.User, id string, inline bool) (*model.ResponseView, error) {
	resp, err := s.store.FindResponse(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Response")
	}

	survey, err := s.store.FindSurvey(ctx, resp.Survey)
	if errors.Is(err, database.ErrNotFound) {
		return nil, httpx.NotFound("Response not found")
	}
	if err != nil {
		return nil, lookupError(err, "Survey")
	}
	if resp.User != user.ID && survey.User != user.ID {
		return nil, httpx.Unauthorized("You are not allowed to view this response")
	}

	r := s.newReader()
	view := &model.ResponseView{}
	err = r.response(ctx, survey, resp, view, inline)
	if err != nil {
		return nil, err
	}
	err = r.run(ctx)
	if err != nil {
		return nil, err
	}
	return view, nil
}
