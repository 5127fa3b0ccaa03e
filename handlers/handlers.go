package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/KhrystynaYelyseyeva/auth-service/utils"
)

// maxBodyBytes caps request bodies; auth payloads are tiny.
const maxBodyBytes = 1 << 20

// decodeJSON decodes and validates a JSON request body into dst.
// Returns a client-facing error suitable for a 400 response.
func decodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return utils.ValidateStruct(dst)
}
