package model

// Request bodies. Validation tags are enforced by httpx.Decode.

type SignInHeader struct {
	T string `json:"t" validate:"required"`
}

type SignInPayload struct {
	Domain         string `json:"domain" validate:"required"`
	Address        string `json:"address" validate:"required"`
	Statement      string `json:"statement" validate:"required"`
	URI            string `json:"uri" validate:"required,url"`
	Version        string `json:"version" validate:"required"`
	ChainID        any    `json:"chainId" validate:"required"`
	Nonce          string `json:"nonce" validate:"required"`
	ExpirationTime string `json:"expirationTime" validate:"required,isodate"`
	IssuedAt       string `json:"issuedAt" validate:"required,isodate"`
	PublicKey      string `json:"publicKey,omitempty"`
	Bech32Prefix   string `json:"bech32Prefix,omitempty"`
}

type SignInRequest struct {
	Header    SignInHeader  `json:"header" validate:"required"`
	Payload   SignInPayload `json:"payload" validate:"required"`
	Signature string        `json:"signature" validate:"required"`
}

type CreateSurveyRequest struct {
	Title        string            `json:"title" validate:"required,min=10,max=100"`
	Description  string            `json:"description" validate:"required,min=10,max=10000"`
	Questions    []Question        `json:"questions" validate:"required,dive"`
	Metadata     map[string]string `json:"metadata" validate:"required"`
	EndDate      string            `json:"endDate,omitempty" validate:"omitempty,isodate"`
	Organization string            `json:"organization,omitempty"`
}

type UpdateSurveyRequest struct {
	ID          string            `json:"id" validate:"required"`
	Title       *string           `json:"title,omitempty" validate:"omitempty,min=10,max=100"`
	Description *string           `json:"description,omitempty" validate:"omitempty,min=10,max=10000"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type AddResponseRequest struct {
	Survey   string   `json:"survey" validate:"required"`
	Response []Answer `json:"response" validate:"required,dive"`
}

type CreateOrganizationRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Logo        string `json:"logo,omitempty"`
}

// Response payloads placed under the envelope's data key.

type Session struct {
	AccessToken string `json:"accessToken"`
	User        *User  `json:"user"`
}

type CreatedSurvey struct {
	Survey   *Survey        `json:"survey"`
	Metadata map[string]any `json:"metadata"`
	Creator  string         `json:"creator"`
}

type UpdatedSurvey struct {
	Survey   *Survey        `json:"survey"`
	Metadata map[string]any `json:"metadata"`
}

// ResponseContent is the JSON blob uploaded for every response.
type ResponseContent struct {
	Survey   ResponseSurvey `json:"survey"`
	User     ResponseUser   `json:"user"`
	Response []Answer       `json:"response"`
}

type ResponseSurvey struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ResponseUser struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type AddedResponse struct {
	CID      string          `json:"cid"`
	Response *Response       `json:"response"`
	Content  ResponseContent `json:"content"`
	Survey   *Survey         `json:"survey"`
}

// InlineOptions select which blobs a read resolves through the gateway.
type InlineOptions struct {
	Metadata  bool
	Questions bool
	Responses bool
}

type UserRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

func RefOf(u *User) UserRef {
	if u == nil {
		return UserRef{}
	}
	return UserRef{ID: u.ID, Name: u.Name, Address: u.Address}
}

type SurveyView struct {
	ID           string         `json:"id"`
	User         UserRef        `json:"user"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	Description  string         `json:"description,omitempty"`
	EndDate      string         `json:"endDate,omitempty"`
	Organization string         `json:"organization,omitempty"`
	MetadataCID  string         `json:"metadataCID"`
	QuestionsCID string         `json:"questionsCID"`
	Metadata     map[string]any `json:"metadata"`
	Questions    []any          `json:"questions"`
	Responses    []ResponseView `json:"responses"`
}

type ResponseView struct {
	ID          string  `json:"id"`
	Survey      string  `json:"survey"`
	User        UserRef `json:"user"`
	Response    any     `json:"response"`
	ResponseCID string  `json:"responseCID"`
}

type Health struct {
	Status    string  `json:"status"`
	Uptime    float64 `json:"uptime"`
	Timestamp int64   `json:"timestamp"`
	Database  string  `json:"database,omitempty"`
}
