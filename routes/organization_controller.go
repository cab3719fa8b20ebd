package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/model"
	"github.com/mbolis/survey3/routes/middlewares"
)

func ListUserOrganizations(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgs, err := app.ListOrganizations(r.Context(), middlewares.CurrentUser(r.Context()).ID)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Successfully retrieved organizations", orgs)
	}
}

func ListAllOrganizations(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orgs, err := app.ListOrganizations(r.Context(), "")
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Successfully retrieved organizations", orgs)
	}
}

func CreateOrganization(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := model.CreateOrganizationRequest{}
		err := httpx.Decode(r, &req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		org, err := app.CreateOrganization(r.Context(), middlewares.CurrentUser(r.Context()), req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Successfully created organization", org)
	}
}

func GetOrganization(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		org, err := app.GetOrganization(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Successfully retrieved organization", org)
	}
}
