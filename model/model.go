package model

import "time"

type User struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type Organization struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Logo        string `json:"logo"`
	Owner       string `json:"owner"`
}

// Survey is an index entry: title, questions and metadata live in the
// content-addressed blobs referenced by MetadataCID and QuestionsCID.
type Survey struct {
	ID           string     `json:"id"`
	User         string     `json:"user"`
	Name         string     `json:"name"`
	Slug         string     `json:"slug"`
	Description  string     `json:"description,omitempty"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	Organization string     `json:"organization,omitempty"`
	MetadataCID  string     `json:"metadataCID"`
	QuestionsCID string     `json:"questionsCID"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Ended reports whether the survey stopped accepting responses at now.
func (s Survey) Ended(now time.Time) bool {
	return s.EndDate != nil && now.After(*s.EndDate)
}

type Response struct {
	ID          string    `json:"id"`
	Survey      string    `json:"survey"`
	User        string    `json:"user"`
	ResponseCID string    `json:"responseCID"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SurveyFilter struct {
	User         string
	Organization string
}

type SurveyUpdate struct {
	MetadataCID string
	Name        *string
	Description *string
}

type Question struct {
	Question string   `json:"question" validate:"required,min=10,max=1000"`
	Type     string   `json:"type" validate:"required,oneof=text radio checkbox"`
	Options  []string `json:"options,omitempty" validate:"omitempty,dive,min=1"`
	Required *bool    `json:"required,omitempty"`
}

type Answer struct {
	Question string `json:"question"`
	Response string `json:"response" validate:"min=5,max=100000"`
}
