package trs

import (
	"net/url"
	"strconv"
)

// DefaultLimit is the page size requested when a query sets none.
const DefaultLimit = 1000

// ToolQuery selects tools from GET /tools. Empty filters are not sent.
type ToolQuery struct {
	Limit  int
	Offset string

	ID             string
	Alias          string
	ToolClass      string
	DescriptorType string
	Registry       string
	Organization   string
	Name           string
	ToolName       string
	Description    string
	Author         string
	// Checker restricts results to checker workflows when true, and
	// excludes them when false. Nil sends nothing.
	Checker *bool
}

// Filters returns the set filters keyed by their TRS query parameter.
// The map is empty when no filter is set.
func (q ToolQuery) Filters() map[string]string {
	f := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			f[key] = value
		}
	}
	set("id", q.ID)
	set("alias", q.Alias)
	set("toolClass", q.ToolClass)
	set("descriptorType", q.DescriptorType)
	set("registry", q.Registry)
	set("organization", q.Organization)
	set("name", q.Name)
	set("toolname", q.ToolName)
	set("description", q.Description)
	set("author", q.Author)
	if q.Checker != nil {
		f["checker"] = strconv.FormatBool(*q.Checker)
	}
	return f
}

func (q ToolQuery) limit() int {
	if q.Limit <= 0 {
		return DefaultLimit
	}
	return q.Limit
}

// values encodes the query for the page starting at offset.
func (q ToolQuery) values(offset string) url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(q.limit()))
	if offset != "" {
		v.Set("offset", offset)
	}
	for key, value := range q.Filters() {
		v.Set(key, value)
	}
	return v
}
