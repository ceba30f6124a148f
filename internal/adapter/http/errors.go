package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/couchcryptid/webtools-service/internal/convert"
	"github.com/couchcryptid/webtools-service/internal/discord"
	"github.com/couchcryptid/webtools-service/internal/domain"
	"github.com/couchcryptid/webtools-service/internal/snowday"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidVIN      = "invalid_vin"
	CodeVINNotFound     = "vin_not_found"
	CodeUpstream        = "upstream_error"
	CodeInvalidArgument = "invalid_argument"
	CodeInternal        = "internal"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	rid := middleware.GetReqID(r.Context())
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", rid, "error", err)
	}
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:      code,
		Message:   err.Error(),
		RequestID: rid,
	}})
}

// writeToolError maps converter input errors to 400 and anything else to 500.
func (s *Server) writeToolError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, convert.ErrUnknownUnit),
		errors.Is(err, convert.ErrInvalidDPI),
		errors.Is(err, convert.ErrInvalidDimension),
		errors.Is(err, convert.ErrInvalidPrecision),
		errors.Is(err, discord.ErrInvalidTimestamp),
		errors.Is(err, discord.ErrInvalidStyle),
		errors.Is(err, snowday.ErrInvalidConditions):
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidArgument, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, CodeInternal, err)
	}
}

// writeLookupError maps VIN lookup failures; decoder failures other than a
// missing VIN are reported as a bad gateway.
func (s *Server) writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidVIN):
		s.writeError(w, r, http.StatusBadRequest, CodeInvalidVIN, err)
	case errors.Is(err, domain.ErrVINNotFound):
		s.writeError(w, r, http.StatusNotFound, CodeVINNotFound, err)
	default:
		s.writeError(w, r, http.StatusBadGateway, CodeUpstream, err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}
