// Package formutil decodes and validates JSON request bodies.
//
//	var in createGroupInput
//	if msg, ok := formutil.Decode(r, &in); !ok {
//		uierrors.RenderBadRequest(w, msg)
//		return
//	}
package formutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/foodjournal/internal/app/system/inputval"
)

// MaxBodyBytes caps request bodies.
const MaxBodyBytes = 64 << 10

// Decode reads r's JSON body into dst and runs inputval on it. On failure
// it returns a message suitable for the client. An empty body decodes as
// an empty object.
func Decode(r *http.Request, dst any) (string, bool) {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		var syn *json.SyntaxError
		var typ *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syn):
			return "Request body is not valid JSON.", false
		case errors.As(err, &typ):
			return "Field " + typ.Field + " has the wrong type.", false
		default:
			return "Request body could not be read.", false
		}
	}
	if res := inputval.Validate(dst); res.HasErrors() {
		return res.First(), false
	}
	return "", true
}
