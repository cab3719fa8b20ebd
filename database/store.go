package database

import (
	"context"
	"errors"

	"github.com/mbolis/survey3/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Store is the document store behind the API: one collection (or table)
// per entity. Lookups of unknown or malformed ids return ErrNotFound.
type Store interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, u *model.User) error
	FindUser(ctx context.Context, id string) (*model.User, error)
	FindUserByAddress(ctx context.Context, address string) (*model.User, error)

	CreateOrganization(ctx context.Context, o *model.Organization) error
	FindOrganization(ctx context.Context, id string) (*model.Organization, error)
	// ListOrganizations returns every organization when owner is empty.
	ListOrganizations(ctx context.Context, owner string) ([]model.Organization, error)

	CreateSurvey(ctx context.Context, s *model.Survey) error
	FindSurvey(ctx context.Context, id string) (*model.Survey, error)
	ListSurveys(ctx context.Context, filter model.SurveyFilter) ([]model.Survey, error)
	UpdateSurvey(ctx context.Context, id string, upd model.SurveyUpdate) (*model.Survey, error)
	// DeleteSurvey removes the survey and its responses.
	DeleteSurvey(ctx context.Context, id string) error

	CreateResponse(ctx context.Context, r *model.Response) error
	FindResponse(ctx context.Context, id string) (*model.Response, error)
	ListResponses(ctx context.Context, surveyID string) ([]model.Response, error)
}
