package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/model"
)

var reSpace = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]`)

// Slug turns a title into the name prefix of the survey blobs.
func Slug(title string) string {
	return strings.ToLower(reSpace.ReplaceAllLiteralString(title, "-"))
}

func metadataFile(slug string) string  { return slug + "-metadata.json" }
func questionsFile(slug string) string { return slug + "-questions.json" }

func responseFile(address, slug string) string {
	return address + "-" + slug + "-response.json"
}

// metadataContent builds the metadata blob. Caller supplied fields go in
// last and may override the generated ones.
func metadataContent(title, slug, description string, creator *model.User, extra map[string]string) map[string]any {
	m := map[string]any{
		"title":          title,
		"slug":           slug,
		"description":    description,
		"creator":        creator.Name,
		"creatorAddress": creator.Address,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// CreateSurvey uploads the questions and metadata blobs and records the
// survey only once both CIDs are known.
func (s *Service) CreateSurvey(ctx context.Context, user *model.User, req model.CreateSurveyRequest) (*model.CreatedSurvey, error) {
	var endDate *time.Time
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339Nano, req.EndDate)
		if err != nil {
			return nil, httpx.Validation("endDate must be an ISO 8601 date")
		}
		t = t.UTC()
		endDate = &t
	}

	if req.Organization != "" {
		org, err := s.store.FindOrganization(ctx, req.Organization)
		if err != nil {
			return nil, lookupError(err, "Organization")
		}
		if org.Owner != user.ID {
			return nil, httpx.Unauthorized("You are not the owner of this organization")
		}
	}

	slug := Slug(req.Title)
	metadata := metadataContent(req.Title, slug, req.Description, user, req.Metadata)

	log.Debugf("survey.create: uploading %s content", slug)
	questionsCID, err := s.pinner.Put(ctx, questionsFile(slug), req.Questions)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Error uploading content")
	}
	metadataCID, err := s.pinner.Put(ctx, metadataFile(slug), metadata)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Error uploading content")
	}

	survey := &model.Survey{
		User:         user.ID,
		Name:         req.Title,
		Slug:         slug,
		Description:  req.Description,
		EndDate:      endDate,
		Organization: req.Organization,
		MetadataCID:  metadataCID,
		QuestionsCID: questionsCID,
		CreatedAt:    s.now().UTC(),
	}
	err = s.store.CreateSurvey(ctx, survey)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to create survey")
	}

	return &model.CreatedSurvey{Survey: survey, Metadata: metadata, Creator: user.ID}, nil
}

// ownSurvey loads a survey and checks that user created it.
func (s *Service) ownSurvey(ctx context.Context, user *model.User, id string) (*model.Survey, error) {
	survey, err := s.store.FindSurvey(ctx, id)
	if err != nil {
		return nil, lookupError(err, "Survey")
	}
	if survey.User != user.ID {
		return nil, httpx.Unauthorized("You are not the owner of this survey")
	}
	return survey, nil
}

// UpdateSurvey re-uploads the metadata blob and points the survey at it.
// The question set is never re-uploaded.
func (s *Service) UpdateSurvey(ctx context.Context, user *model.User, req model.UpdateSurveyRequest) (*model.UpdatedSurvey, error) {
	survey, err := s.ownSurvey(ctx, user, req.ID)
	if err != nil {
		return nil, err
	}

	title := survey.Name
	if req.Title != nil {
		title = *req.Title
	}
	description := survey.Description
	if req.Description != nil {
		description = *req.Description
	}

	metadata := metadataContent(title, survey.Slug, description, user, req.Metadata)
	metadata["updatedAt"] = s.now().UTC().Format(time.RFC3339Nano)

	metadataCID, err := s.pinner.Put(ctx, metadataFile(survey.Slug), metadata)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Error uploading content")
	}

	updated, err := s.store.UpdateSurvey(ctx, survey.ID, model.SurveyUpdate{
		MetadataCID: metadataCID,
		Name:        req.Title,
		Description: req.Description,
	})
	if err != nil {
		return nil, lookupError(err, "Survey")
	}
	return &model.UpdatedSurvey{Survey: updated, Metadata: metadata}, nil
}

// DeleteSurvey drops the survey and its responses. Blobs stay pinned.
func (s *Service) DeleteSurvey(ctx context.Context, user *model.User, id string) error {
	survey, err := s.ownSurvey(ctx, user, id)
	if err != nil {
		return err
	}
	err = s.store.DeleteSurvey(ctx, survey.ID)
	if err != nil {
		return lookupError(err, "Survey")
	}
	return nil
}
