package routes

import (
	"net/http"

	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/model"
)

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := model.SignInRequest{}
		err := httpx.Decode(r, &req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		session, err := app.Login(r.Context(), req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Login successful", session)
	}
}

func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := model.SignInRequest{}
		err := httpx.Decode(r, &req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		session, err := app.Register(r.Context(), req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Registration successful", session)
	}
}

func CreateDummyUser(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := app.CreateDummyUser(r.Context())
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Dummy user created", session)
	}
}

func Health(message string, app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, r, http.StatusOK, message, app.Health(r.Context()))
	}
}
