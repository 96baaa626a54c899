package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	dserrors "github.com/paveg/datafilter/internal/errors"
)

// Response status values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Status  string `json:"status"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// httpStatus maps an error kind to the response code.
func httpStatus(kind dserrors.Kind) int {
	switch kind {
	case dserrors.KindPath, dserrors.KindInvalidArgument, dserrors.KindEmptyDataset:
		return http.StatusBadRequest
	case dserrors.KindNotFound:
		return http.StatusNotFound
	case dserrors.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case dserrors.KindDecode, dserrors.KindEncode:
		return http.StatusUnprocessableEntity
	case dserrors.KindDependencyMissing:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes body with the given status. A body that cannot be
// encoded is reported as an encode error instead.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		s.writeError(w, dserrors.NewEncodeError("Respond", "", fmt.Sprintf("response is not representable as JSON: %v", err)))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		s.logger.Debug("writing response", slog.Any("error", err))
	}
}

// writeError writes the error envelope for err.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := dserrors.KindOf(err)
	resp := errorResponse{Status: statusError, Kind: kind.String(), Message: err.Error()}
	var de *dserrors.DatasetError
	if errors.As(err, &de) {
		resp.Hint = de.Hint
	}
	status := httpStatus(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", slog.String("kind", resp.Kind), slog.Any("error", err))
	}

	data, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

// decode reads a JSON request body into dst. Unknown fields are rejected.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dserrors.NewInvalidArgumentError("DecodeRequest", "", "request body is empty")
		}
		return dserrors.NewInvalidArgumentError("DecodeRequest", "", "malformed request body: "+err.Error())
	}
	return nil
}
