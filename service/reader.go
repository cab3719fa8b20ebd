package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mbolis/survey3/database"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/ipfs"
	"github.com/mbolis/survey3/model"
)

// reader assembles views for one request. Store lookups run as the views
// are built; gateway fetches are queued and run together by run, writing
// into the already allocated views so output order never depends on
// fetch order.
type reader struct {
	s     *Service
	users map[string]model.UserRef
	jobs  []func(context.Context) error
}

func (s *Service) newReader() *reader {
	return &reader{s: s, users: map[string]model.UserRef{}}
}

func (r *reader) user(ctx context.Context, id string) (model.UserRef, error) {
	if ref, ok := r.users[id]; ok {
		return ref, nil
	}
	u, err := r.s.store.FindUser(ctx, id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		r.users[id] = model.UserRef{ID: id}
	case err != nil:
		return model.UserRef{}, httpx.Wrap(httpx.KindInternal, err, "Failed to fetch user")
	default:
		r.users[id] = model.RefOf(u)
	}
	return r.users[id], nil
}

func (r *reader) fetch(cid, filename string, dst any) {
	r.jobs = append(r.jobs, func(ctx context.Context) error {
		err := ipfs.FetchJSON(ctx, r.s.gateway, cid, filename, dst)
		if err != nil {
			return httpx.Wrap(httpx.KindInternal, err, "Failed to fetch content %s", cid)
		}
		return nil
	})
}

func (r *reader) run(ctx context.Context) error {
	defer func() { r.jobs = nil }()

	if r.s.fanOut <= 1 {
		for _, job := range r.jobs {
			err := job(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.s.fanOut)
	for _, job := range r.jobs {
		g.Go(func() error {
			return job(gctx)
		})
	}
	return g.Wait()
}

func (r *reader) survey(ctx context.Context, sv *model.Survey, dst *model.SurveyView, opts model.InlineOptions) error {
	owner, err := r.user(ctx, sv.User)
	if err != nil {
		return err
	}

	*dst = model.SurveyView{
		ID:           sv.ID,
		User:         owner,
		Name:         sv.Name,
		Slug:         sv.Slug,
		Description:  sv.Description,
		Organization: sv.Organization,
		MetadataCID:  sv.MetadataCID,
		QuestionsCID: sv.QuestionsCID,
	}
	if sv.EndDate != nil {
		dst.EndDate = sv.EndDate.Format(time.RFC3339)
	}

	if opts.Metadata {
		r.fetch(sv.MetadataCID, metadataFile(sv.Slug), &dst.Metadata)
	}
	if opts.Questions {
		r.fetch(sv.QuestionsCID, questionsFile(sv.Slug), &dst.Questions)
	}
	if !opts.Responses {
		return nil
	}

	responses, err := r.s.store.ListResponses(ctx, sv.ID)
	if err != nil {
		return httpx.Wrap(httpx.KindInternal, err, "Failed to fetch responses")
	}
	dst.Responses = make([]model.ResponseView, len(responses))
	for i := range responses {
		err = r.response(ctx, sv, &responses[i], &dst.Responses[i], true)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *reader) response(ctx context.Context, sv *model.Survey, resp *model.Response, dst *model.ResponseView, inline bool) error {
	respondent, err := r.user(ctx, resp.User)
	if err != nil {
		return err
	}
	*dst = model.ResponseView{
		ID:          resp.ID,
		Survey:      resp.Survey,
		User:        respondent,
		ResponseCID: resp.ResponseCID,
	}
	if inline {
		r.fetch(resp.ResponseCID, responseFile(respondent.Address, sv.Slug), &dst.Response)
	}
	return nil
}

// ListSurveys returns the surveys matching filter, oldest first, with the
// blobs selected by opts inlined.
func (s *Service) ListSurveys(ctx context.Context, filter model.SurveyFilter, opts model.InlineOptions) ([]model.SurveyView, error) {
	surveys, err := s.store.ListSurveys(ctx, filter)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to fetch surveys")
	}

	r := s.newReader()
	views := make([]model.SurveyView, len(surveys))
	for i := range surveys {
		err = r.survey(ctx, &surveys[i], &views[i], opts)
		if err != nil {
			return nil, err
		}
	}
	err = r.run(ctx)
	if err != nil {
		return nil, err
	}
	return views, nil
}

// GetSurvey returns one survey of user's with metadata and questions
// inlined, and responses when asked.
func (s *Service) GetSurvey(ctx context.Context, user *model.User, id string, responses bool) (*model.SurveyView, error) {
	survey, err := s.ownSurvey(ctx, user, id)
	if err != nil {
		return nil, err
	}

	r := s.newReader()
	view := &model.SurveyView{}
	err = r.survey(ctx, survey, view, model.InlineOptions{Metadata: true, Questions: true, Responses: responses})
	if err != nil {
		return nil, err
	}
	err = r.run(ctx)
	if err != nil {
		return nil, err
	}
	return view, nil
}
