package catalog

import (
	"errors"
	"fmt"

	"github.com/ademuri/lastfm-go/lastfm"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

var ErrAPI = errors.New("catalog: api error")

// APIError is a non-success response from a catalog service. It is terminal:
// nothing in this package retries.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog: api error %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error { return ErrAPI }

// apiError converts service-specific failures into *APIError. Transport
// errors are returned unchanged.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var se spotify.Error
	if errors.As(err, &se) {
		return &APIError{Code: se.Status, Message: se.Message}
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		code := 0
		if re.Response != nil {
			code = re.Response.StatusCode
		}
		return &APIError{Code: code, Message: string(re.Body)}
	}
	var le *lastfm.LastfmError
	if errors.As(err, &le) {
		return &APIError{Code: le.Code, Message: le.Message}
	}
	return err
}
