// Package ga4gh holds the resource types shared by the GA4GH Service
// Registry and TRS clients.
//
// Every resource remembers the exact JSON it was decoded from and marshals
// back to it, so saved output reproduces the server's document, including
// fields this package does not model.
package ga4gh

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/fairbio/fairbio-cli/internal/log"
)

// decodeKeepRaw unmarshals data into v and stores a copy of data in raw.
// A field whose JSON type does not match the model is left at its zero
// value; the raw document still carries it.
func decodeKeepRaw(data []byte, v any, raw *json.RawMessage) error {
	if err := json.Unmarshal(data, v); err != nil {
		typeErr, ok := fieldTypeMismatch(err)
		if !ok {
			return err
		}
		log.Debug(log.CatHTTP, "Ignoring field of unexpected type",
			"field", typeErr.Field, "got", typeErr.Value, "want", typeErr.Type.String())
	}
	*raw = append((*raw)[:0], bytes.TrimSpace(data)...)
	return nil
}

// encodeRaw returns raw when present, otherwise marshals v.
func encodeRaw(raw json.RawMessage, v any) ([]byte, error) {
	if len(raw) > 0 {
		return raw, nil
	}
	return json.Marshal(v)
}

// fieldTypeMismatch reports whether err only says that a field inside the
// document had the wrong JSON type. encoding/json still decodes every other
// field in that case. A document of the wrong type altogether is not a
// field mismatch.
func fieldTypeMismatch(err error) (*json.UnmarshalTypeError, bool) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return typeErr, true
	}
	return nil, false
}
