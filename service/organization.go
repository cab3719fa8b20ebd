package service

import (
	"context"

	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/model"
)

func (s *Service) CreateOrganization(ctx context.Context, user *model.User, req model.CreateOrganizationRequest) (*model.Organization, error) {
	org := &model.Organization{
		Name:        req.Name,
		Description: req.Description,
		Logo:        req.Logo,
		Owner:       user.ID,
	}
	err := s.store.CreateOrganization(ctx, org)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to create organization")
	}
	return org, nil
}

// ListOrganizations lists the organizations owned by owner, or all of them
// when owner is empty.
func (s *Service) ListOrganizations(ctx context.Context, owner string) ([]model.Organization, error) {
	orgs, err := s.store.ListOrganizations(ctx, owner)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to fetch organizations")
	}
	return orgs, nil
}

func (s *Service) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	org, err := s.store.FindOrganization(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Organization")
	}
	return org, nil
}
