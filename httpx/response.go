package httpx

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/survey3/log"
)

// Envelope is the body of every API response.
type Envelope struct {
	Message string       `json:"message"`
	Data    any          `json:"data"`
	Error   *ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// OK renders data inside a success envelope.
func OK(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	render.Status(r, status)
	render.JSON(w, r, Envelope{Message: message, Data: data})
}

// Fail will log err, at error level when it is internal and at debug level
// otherwise, and render it inside an error envelope.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	e := AsError(err)

	level := log.DebugLevel
	if e.Kind == KindInternal {
		level = log.ErrorLevel
	}
	entry := log.WithField("path", r.URL.Path)
	if e.Cause != nil {
		entry = entry.WithError(e.Cause)
	}
	entry.Logf(level.Logrus(), "%s:%d - %s", e.Kind.Code(), e.Kind.Status(), e.Message)

	render.Status(r, e.Kind.Status())
	render.JSON(w, r, Envelope{
		Message: e.Message,
		Error: &ErrorDetail{
			Code:    e.Kind.Code(),
			Status:  e.Kind.Status(),
			Message: e.Message,
		},
	})
}

// LogStatus renders a bare status as an error envelope, for router level
// failures such as unknown routes.
func LogStatus(w http.ResponseWriter, r *http.Request, status int, kind Kind) {
	e := &Error{Kind: kind, Message: http.StatusText(status)}
	log.Debugf("%s %s: %d", r.Method, r.URL.Path, status)

	render.Status(r, status)
	render.JSON(w, r, Envelope{
		Message: e.Message,
		Error: &ErrorDetail{
			Code:    kind.Code(),
			Status:  status,
			Message: e.Message,
		},
	})
}
