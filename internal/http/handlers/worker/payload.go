package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/aanand-mishra/workforce-api/internal/types"
	"github.com/aanand-mishra/workforce-api/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// maxBodyBytes caps request bodies; a worker payload is a few hundred bytes.
const maxBodyBytes = 1 << 20

// workerRequest is the wire schema for create and full update: every field
// must be present. Fields are pointers so a missing key ("required") can be
// told apart from an empty string ("notblank").
type workerRequest struct {
	Name  *string `json:"name"  validate:"required,notblank,max=100"`
	Email *string `json:"email" validate:"required,notblank,email,max=254"`
	Role  *string `json:"role"  validate:"required,notblank,max=100"`
}

// workerPatch is the wire schema for partial update: absent keys are
// skipped, present ones follow the same rules as workerRequest.
type workerPatch struct {
	Name  *string `json:"name"  validate:"omitnil,notblank,max=100"`
	Email *string `json:"email" validate:"omitnil,notblank,email,max=254"`
	Role  *string `json:"role"  validate:"omitnil,notblank,max=100"`
}

// workerResponse is the wire representation of a stored worker.
type workerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (p *workerRequest) trim() {
	trimAll(p.Name, p.Email, p.Role)
}

func (p *workerPatch) trim() {
	trimAll(p.Name, p.Email, p.Role)
}

func trimAll(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// toWorker maps a validated request onto a new record. Callers must
// validate first: all three fields are dereferenced.
func (p workerRequest) toWorker() types.Worker {
	return types.Worker{Name: *p.Name, Email: *p.Email, Role: *p.Role}
}

func (p workerRequest) toUpdate() types.WorkerUpdate {
	return types.WorkerUpdate{Name: p.Name, Email: p.Email, Role: p.Role}
}

func (p workerPatch) toUpdate() types.WorkerUpdate {
	return types.WorkerUpdate{Name: p.Name, Email: p.Email, Role: p.Role}
}

func toResponse(w types.Worker) workerResponse {
	return workerResponse{ID: w.ID, Name: w.Name, Email: w.Email, Role: w.Role}
}

func toResponses(ws []types.Worker) []workerResponse {
	out := make([]workerResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, toResponse(w))
	}
	return out
}

// newValidator returns a validator that reports JSON field names and knows
// the notblank rule.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the body into dst. On failure it returns the error
// envelope to send with a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (response.Response, bool) {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return response.Response{}, true
	}

	if errors.Is(err, io.EOF) {
		return response.Error("request body is empty"), false
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		fields := response.FieldErrors{}
		fields.Add(typeErr.Field, "Not a valid string.")
		return response.Error(fields), false
	}

	return response.GeneralError(fmt.Errorf("malformed JSON: %w", err)), false
}
