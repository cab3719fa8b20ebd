package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mbolis/survey3/auth"
	"github.com/mbolis/survey3/database"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/log"
	"github.com/mbolis/survey3/model"
)

const (
	DummyUserName    = "Developer"
	DummyUserAddress = "0x80ee44eC09243ab38e2fc07f227254730965d9C1"
)

// verify checks the challenge expiry before the signature, so an expired
// challenge never reaches signature recovery.
func (s *Service) verify(req model.SignInRequest) error {
	err := auth.CheckExpiry(req.Payload.ExpirationTime, s.now())
	switch {
	case errors.Is(err, auth.ErrExpired):
		return httpx.Validation(auth.ErrExpired.Error())
	case err != nil:
		return httpx.Validation("payload.expirationTime must be an ISO 8601 date")
	}

	err = auth.Verify(req)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrChainID), errors.Is(err, auth.ErrSignatureType):
		return httpx.BadRequest(err.Error())
	default:
		return httpx.Wrap(httpx.KindUnauthorized, err, "Invalid signature")
	}
}

func (s *Service) session(u *model.User) (*model.Session, error) {
	token, err := s.tokens.Issue(u.Address)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to issue access token")
	}
	return &model.Session{AccessToken: token, User: u}, nil
}

// Login verifies a signed challenge and returns a session, creating the
// user on first sight of its address.
func (s *Service) Login(ctx context.Context, req model.SignInRequest) (*model.Session, error) {
	err := s.verify(req)
	if err != nil {
		return nil, err
	}

	address := auth.NormalizeAddress(req.Payload.Address)
	user, err := s.findOrCreateUser(ctx, address, address)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to fetch user")
	}
	return s.session(user)
}

// Register is Login for addresses never seen before.
func (s *Service) Register(ctx context.Context, req model.SignInRequest) (*model.Session, error) {
	err := s.verify(req)
	if err != nil {
		return nil, err
	}

	address := auth.NormalizeAddress(req.Payload.Address)
	user := &model.User{Name: address, Address: address}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, database.ErrDuplicate) {
		return nil, httpx.BadRequest("User already registered")
	}
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to create user")
	}
	log.Debugf("auth.register: %s", address)
	return s.session(user)
}

func (s *Service) findOrCreateUser(ctx context.Context, name, address string) (*model.User, error) {
	user, err := s.store.FindUserByAddress(ctx, address)
	if !errors.Is(err, database.ErrNotFound) {
		return user, err
	}

	user = &model.User{Name: name, Address: address}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, database.ErrDuplicate) {
		// created concurrently
		return s.store.FindUserByAddress(ctx, address)
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("auth.create_user: %s", address)
	return user, nil
}

// Authenticate resolves a bearer token to a stored user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, httpx.Unauthorized("Unauthorized")
	}
	address, err := s.tokens.Verify(token)
	if err != nil {
		return nil, httpx.Wrap(httpx.KindUnauthorized, err, "Unauthorized")
	}

	user, err := s.store.FindUserByAddress(ctx, address)
	if errors.Is(err, database.ErrNotFound) {
		return nil, httpx.Unauthorized("Unauthorized")
	}
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to fetch user")
	}
	return user, nil
}

// CreateDummyUser provisions the fixed development account.
func (s *Service) CreateDummyUser(ctx context.Context) (*model.Session, error) {
	user, err := s.findOrCreateUser(ctx, DummyUserName, auth.NormalizeAddress(DummyUserAddress))
	if err != nil {
		return nil, httpx.Wrap(httpx.KindInternal, err, "Failed to create dummy user")
	}
	return s.session(user)
}
