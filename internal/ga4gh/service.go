package ga4gh

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ServiceType identifies a GA4GH API (e.g. org.ga4gh / trs / 2.0.1).
type ServiceType struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version"`
}

// UnmarshalJSON accepts the standard object form and, for registries that
// publish a bare string, stores the string as the artifact. Any other JSON
// type leaves t empty.
func (t *ServiceType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ServiceType{Artifact: s}
		return nil
	}
	type plain ServiceType
	if err := json.Unmarshal(data, (*plain)(t)); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}
	return nil
}

// Matches reports whether filter is a case-insensitive substring of the
// artifact, group or version. An empty filter matches every type.
func (t ServiceType) Matches(filter string) bool {
	f := strings.ToLower(strings.TrimSpace(filter))
	if f == "" {
		return true
	}
	for _, field := range []string{t.Artifact, t.Group, t.Version} {
		if strings.Contains(strings.ToLower(field), f) {
			return true
		}
	}
	return false
}

// Organization owns a service.
type Organization struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Service is a GA4GH service description. The same shape is returned by
// /service-info endpoints, see ServiceInfo.
type Service struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Type             ServiceType  `json:"type"`
	Description      string       `json:"description,omitempty"`
	Organization     Organization `json:"organization"`
	ContactURL       string       `json:"contactUrl,omitempty"`
	DocumentationURL string       `json:"documentationUrl,omitempty"`
	CreatedAt        string       `json:"createdAt,omitempty"`
	UpdatedAt        string       `json:"updatedAt,omitempty"`
	Environment      string       `json:"environment,omitempty"`
	Version          string       `json:"version"`
	URL              string       `json:"url,omitempty"`

	raw json.RawMessage
}

// ServiceInfo describes a registry itself.
type ServiceInfo = Service

func (s *Service) UnmarshalJSON(data []byte) error {
	type plain Service
	return decodeKeepRaw(data, (*plain)(s), &s.raw)
}

func (s Service) MarshalJSON() ([]byte, error) {
	type plain Service
	return encodeRaw(s.raw, plain(s))
}
