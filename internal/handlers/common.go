package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/models"
)

const maxBodyBytes = 1 << 20

// Options are shared by the handlers.
type Options struct {
	// Timeout bounds the store calls of a single request.
	Timeout time.Duration
	// Production hides error details from responses.
	Production bool
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func contextWithTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// serverError writes a 500 whose detail is only included outside production.
func (o Options) serverError(w http.ResponseWriter, message string, err error) {
	resp := models.NewErrorResponse(message)
	if !o.Production && err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// newValidator reports struct fields by their JSON names and knows
// "notblank" for strings that must contain more than whitespace.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// fieldErrors flattens validator errors into field -> message.
func fieldErrors(err error) map[string]string {
	out := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "notblank":
			out[fe.Field()] = fe.Field() + " is required"
		case "oneof":
			out[fe.Field()] = fe.Field() + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
		default:
			out[fe.Field()] = fe.Field() + " is invalid"
		}
	}
	return out
}
