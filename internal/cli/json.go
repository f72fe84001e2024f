package cli

import (
	"encoding/json"
	"errors"
	"io"

	zderrors "github.com/rileyhilliard/zonedash/internal/errors"
)

// JSONEnvelope wraps --json output in a consistent structure for machine parsing.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError is the machine-readable form of a failure.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// ErrCodeUnknown is used for errors without a structured code.
const ErrCodeUnknown = "UNKNOWN"

// WriteJSONSuccess writes a successful response with data.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError writes err as a failed response. data, if non-nil, is
// included so callers can still report partial results.
func WriteJSONFromError(w io.Writer, err error, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Data: data, Error: ErrorToJSON(err)})
}

func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts an error to its JSON form, keeping structured codes.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var zdErr *zderrors.Error
	if errors.As(err, &zdErr) {
		return &JSONError{
			Code:       zdErr.Code,
			Message:    zdErr.Short(),
			Suggestion: zdErr.Suggestion,
		}
	}
	return &JSONError{Code: ErrCodeUnknown, Message: err.Error()}
}
