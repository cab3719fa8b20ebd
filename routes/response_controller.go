package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/model"
	"github.com/mbolis/survey3/routes/middlewares"
)

func AddResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := model.AddResponseRequest{}
		err := httpx.Decode(r, &req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		added, err := app.AddResponse(r.Context(), middlewares.CurrentUser(r.Context()), req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Response added successfully", added)
	}
}

func GetResponse(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		content, err := httpx.ParseFlag(r, "content")
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		user := middlewares.CurrentUser(r.Context())
		resp, err := app.GetResponse(r.Context(), user, chi.URLParam(r, "id"), content)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Response retrieved successfully", resp)
	}
}
