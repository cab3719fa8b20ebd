package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mbolis/survey3/app"
	"github.com/mbolis/survey3/httpx"
	"github.com/mbolis/survey3/model"
	"github.com/mbolis/survey3/routes/middlewares"
)

func inlineOptions(r *http.Request) (opts model.InlineOptions, err error) {
	opts.Metadata, err = httpx.ParseFlag(r, "metadata")
	if err != nil {
		return
	}
	opts.Questions, err = httpx.ParseFlag(r, "questions")
	if err != nil {
		return
	}
	opts.Responses, err = httpx.ParseFlag(r, "responses")
	return
}

func listSurveys(app app.App, mine bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := inlineOptions(r)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		filter := model.SurveyFilter{Organization: r.URL.Query().Get("organization")}
		if mine {
			filter.User = middlewares.CurrentUser(r.Context()).ID
		}

		surveys, err := app.ListSurveys(r.Context(), filter, opts)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Surveys retrieved successfully", surveys)
	}
}

// ListUserSurveys lists the caller's surveys.
func ListUserSurveys(app app.App) http.HandlerFunc {
	return listSurveys(app, true)
}

func ListAllSurveys(app app.App) http.HandlerFunc {
	return listSurveys(app, false)
}

func GetSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses, err := httpx.ParseFlag(r, "responses")
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		user := middlewares.CurrentUser(r.Context())
		survey, err := app.GetSurvey(r.Context(), user, chi.URLParam(r, "id"), responses)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Survey retrieved successfully", survey)
	}
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := model.CreateSurveyRequest{}
		err := httpx.Decode(r, &req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		created, err := app.CreateSurvey(r.Context(), middlewares.CurrentUser(r.Context()), req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Survey created successfully", created)
	}
}

func UpdateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := model.UpdateSurveyRequest{}
		err := httpx.Decode(r, &req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}

		updated, err := app.UpdateSurvey(r.Context(), middlewares.CurrentUser(r.Context()), req)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Survey updated successfully", updated)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := app.DeleteSurvey(r.Context(), middlewares.CurrentUser(r.Context()), id)
		if err != nil {
			httpx.Fail(w, r, err)
			return
		}
		httpx.OK(w, r, http.StatusOK, "Survey deleted successfully", map[string]string{"id": id})
	}
}
