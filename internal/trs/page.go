package trs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
)

// Pagination headers defined by TRS v2. Some registries repeat them as
// fields of a JSON envelope around the tool list.
const (
	headerNextPage      = "next_page"
	headerLastPage      = "last_page"
	headerSelfLink      = "self_link"
	headerCurrentOffset = "current_offset"
	headerCurrentLimit  = "current_limit"
)

// Pagination describes where a page sits in the full listing.
// Unset fields are omitted from JSON.
type Pagination struct {
	CurrentOffset string `json:"current_offset,omitempty" yaml:"current_offset,omitempty"`
	CurrentLimit  string `json:"current_limit,omitempty" yaml:"current_limit,omitempty"`
	NextPage      string `json:"next_page,omitempty" yaml:"next_page,omitempty"`
	LastPage      string `json:"last_page,omitempty" yaml:"last_page,omitempty"`
	SelfLink      string `json:"self_link,omitempty" yaml:"self_link,omitempty"`
}

// IsZero reports whether no pagination information was found.
func (p Pagination) IsZero() bool {
	return p == Pagination{}
}

// NextOffset extracts the offset query parameter of NextPage.
// It returns "" when there is no next page or it carries no offset.
func (p Pagination) NextOffset() string {
	if p.NextPage == "" {
		return ""
	}
	u, err := url.Parse(p.NextPage)
	if err != nil {
		return ""
	}
	return u.Query().Get("offset")
}

// ToolPage is one page of GET /tools.
type ToolPage struct {
	Tools      []ga4gh.Tool
	Pagination Pagination
}

// ToolCollection is the result of following every page.
type ToolCollection struct {
	AllTools   []ga4gh.Tool `json:"all_tools"`
	TotalCount int          `json:"total_count"`
	TotalPages int          `json:"total_pages"`
	PageSize   int          `json:"page_size"`
}

func paginationFromHeader(h http.Header) Pagination {
	if h == nil {
		return Pagination{}
	}
	return Pagination{
		CurrentOffset: h.Get(headerCurrentOffset),
		CurrentLimit:  h.Get(headerCurrentLimit),
		NextPage:      h.Get(headerNextPage),
		LastPage:      h.Get(headerLastPage),
		SelfLink:      h.Get(headerSelfLink),
	}
}

// decodePage accepts a bare tool array, an envelope with a "tools" field,
// or a single tool object. Envelope pagination fields win over headers.
func decodePage(body []byte, h http.Header) (*ToolPage, error) {
	page := &ToolPage{Tools: []ga4gh.Tool{}, Pagination: paginationFromHeader(h)}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return page, nil
	}

	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &page.Tools); err != nil {
			return nil, fmt.Errorf("decoding tool list: %w", err)
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, fmt.Errorf("decoding tool page: %w", err)
		}
		rawTools, ok := fields["tools"]
		if !ok {
			var tool ga4gh.Tool
			if err := json.Unmarshal(body, &tool); err != nil {
				return nil, fmt.Errorf("decoding tool: %w", err)
			}
			page.Tools = append(page.Tools, tool)
			return page, nil
		}
		if err := json.Unmarshal(rawTools, &page.Tools); err != nil {
			return nil, fmt.Errorf("decoding tool list: %w", err)
		}
		if page.Tools == nil {
			page.Tools = []ga4gh.Tool{}
		}
		overrideFromBody(&page.Pagination.CurrentOffset, fields[headerCurrentOffset])
		overrideFromBody(&page.Pagination.CurrentLimit, fields[headerCurrentLimit])
		overrideFromBody(&page.Pagination.NextPage, fields[headerNextPage])
		overrideFromBody(&page.Pagination.LastPage, fields[headerLastPage])
		overrideFromBody(&page.Pagination.SelfLink, fields[headerSelfLink])
	default:
		return nil, fmt.Errorf("decoding tool page: unexpected JSON starting with %q", body[0])
	}
	return page, nil
}

// overrideFromBody replaces dst with a string or number field; null and
// absent fields leave dst unchanged.
func overrideFromBody(dst *string, raw json.RawMessage) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s != "" {
			*dst = s
		}
		return
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		*dst = n.String()
		return
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		*dst = strconv.FormatBool(b)
	}
}
