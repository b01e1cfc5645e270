// Package trs is a client for the GA4GH Tool Registry Service (TRS) v2 API.
package trs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
	"github.com/fairbio/fairbio-cli/internal/httpclient"
	"github.com/fairbio/fairbio-cli/internal/log"
	"github.com/fairbio/fairbio-cli/internal/tracing"
)

// APIPath is appended to the registry URL to reach the TRS endpoints.
const APIPath = "/ga4gh/trs/v2"

// ErrRegistryRequired is returned when no registry URL was given.
var ErrRegistryRequired = errors.New("registry URL is required (use -r/--registry)")

// Client queries one TRS endpoint.
type Client struct {
	http        *httpclient.Client
	registryURL string
	tracer      trace.Tracer
}

// BaseURL returns the TRS endpoint for registryURL. Both
// "https://dockstore.org/api" and "https://dockstore.org/api/ga4gh/trs/v2/"
// give "https://dockstore.org/api/ga4gh/trs/v2".
func BaseURL(registryURL string) (string, error) {
	u := strings.TrimRight(strings.TrimSpace(registryURL), "/")
	if u == "" {
		return "", ErrRegistryRequired
	}
	u = strings.TrimSuffix(u, APIPath)
	return u + APIPath, nil
}

// NewClient returns a client for the TRS endpoint under registryURL.
func NewClient(registryURL string, opts httpclient.Options) (*Client, error) {
	base, err := BaseURL(registryURL)
	if err != nil {
		return nil, err
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Client{
		http:        httpclient.New(base, opts),
		registryURL: registryURL,
		tracer:      tracer,
	}, nil
}

// RegistryURL returns the registry URL as given to NewClient.
func (c *Client) RegistryURL() string {
	return c.registryURL
}

// URL returns the TRS base URL requests are sent to.
func (c *Client) URL() string {
	return c.http.BaseURL()
}

// ServiceInfo describes the TRS service.
func (c *Client) ServiceInfo(ctx context.Context) (*ga4gh.ServiceInfo, error) {
	var info ga4gh.ServiceInfo
	if _, err := c.http.GetJSON(ctx, "service-info", nil, &info); err != nil {
		return nil, fmt.Errorf("fetching TRS service info: %w", err)
	}
	return &info, nil
}

// Tools fetches one page of tools.
func (c *Client) Tools(ctx context.Context, q ToolQuery) (*ToolPage, error) {
	page, err := c.toolsPage(ctx, q, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	return page, nil
}

func (c *Client) toolsPage(ctx context.Context, q ToolQuery, offset string) (*ToolPage, error) {
	var raw json.RawMessage
	header, err := c.http.GetJSON(ctx, "tools", q.values(offset), &raw)
	if err != nil {
		return nil, err
	}
	return decodePage(raw, header)
}

// AllTools follows next_page links from q.Offset until the listing is
// exhausted. A failed page aborts the walk and discards what was gathered.
func (c *Client) AllTools(ctx context.Context, q ToolQuery) (*ToolCollection, error) {
	coll := &ToolCollection{AllTools: []ga4gh.Tool{}, PageSize: q.limit()}
	requested := map[string]bool{}
	offset := q.Offset

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		requested[offset] = true
		coll.TotalPages++

		page, err := c.tracedPage(ctx, q, offset, coll.TotalPages)
		if err != nil {
			return nil, fmt.Errorf("fetching tools page %d: %w", coll.TotalPages, err)
		}
		if len(page.Tools) == 0 {
			break
		}
		coll.AllTools = append(coll.AllTools, page.Tools...)

		next := page.Pagination.NextOffset()
		if next == "" {
			break
		}
		if requested[next] {
			log.Warn(log.CatTRS, "next_page repeats an offset already fetched, stopping", "offset", next, "pages", coll.TotalPages)
			break
		}
		offset = next
	}

	coll.TotalCount = len(coll.AllTools)
	log.Debug(log.CatTRS, "fetched all tools", "tools", coll.TotalCount, "pages", coll.TotalPages)
	return coll, nil
}

func (c *Client) tracedPage(ctx context.Context, q ToolQuery, offset string, n int) (*ToolPage, error) {
	ctx, span := c.tracer.Start(ctx, tracing.SpanPrefixPage, trace.WithAttributes(
		attribute.String(tracing.AttrPageOffset, offset),
		attribute.Int("trs.page.number", n),
	))
	page, err := c.toolsPage(ctx, q, offset)
	if err == nil {
		span.AddEvent(tracing.EventPageFetch, trace.WithAttributes(
			attribute.Int(tracing.AttrPageTools, len(page.Tools)),
		))
		log.Debug(log.CatTRS, "fetched page", "page", n, "offset", offset, "tools", len(page.Tools))
	}
	tracing.EndWithError(span, err)
	return page, err
}

// Tool fetches one tool.
func (c *Client) Tool(ctx context.Context, id string) (*ga4gh.Tool, error) {
	var tool ga4gh.Tool
	if _, err := c.http.GetJSON(ctx, httpclient.PathEscape("tools", id), nil, &tool); err != nil {
		return nil, fmt.Errorf("fetching tool %q: %w", id, err)
	}
	return &tool, nil
}

// Versions lists the versions of a tool.
func (c *Client) Versions(ctx context.Context, id string) ([]ga4gh.ToolVersion, error) {
	var versions []ga4gh.ToolVersion
	if _, err := c.http.GetJSON(ctx, httpclient.PathEscape("tools", id, "versions"), nil, &versions); err != nil {
		return nil, fmt.Errorf("fetching versions for tool %q: %w", id, err)
	}
	return versions, nil
}

// Version fetches one version of a tool.
func (c *Client) Version(ctx context.Context, id, versionID string) (*ga4gh.ToolVersion, error) {
	var v ga4gh.ToolVersion
	if _, err := c.http.GetJSON(ctx, httpclient.PathEscape("tools", id, "versions", versionID), nil, &v); err != nil {
		return nil, fmt.Errorf("fetching version %q of tool %q: %w", versionID, id, err)
	}
	return &v, nil
}

// IsPlainType reports whether descriptorType asks for an unwrapped body
// (PLAIN_CWL, PLAIN_WDL, ...).
func IsPlainType(descriptorType string) bool {
	return strings.HasPrefix(strings.ToUpper(descriptorType), "PLAIN_")
}

// Descriptor fetches the primary descriptor of a version. PLAIN_* types
// return the file itself, which is wrapped into a FileWrapper.
func (c *Client) Descriptor(ctx context.Context, id, versionID, descriptorType string) (*ga4gh.FileWrapper, error) {
	fw, err := c.fileWrapper(ctx, descriptorType, httpclient.PathEscape("tools", id, "versions", versionID, descriptorType, "descriptor"))
	if err != nil {
		return nil, fmt.Errorf("fetching %s descriptor for tool %q version %q: %w", descriptorType, id, versionID, err)
	}
	return fw, nil
}

// DescriptorAtPath fetches a secondary descriptor file. relPath may
// contain slashes; it travels as one escaped path segment.
func (c *Client) DescriptorAtPath(ctx context.Context, id, versionID, descriptorType, relPath string) (*ga4gh.FileWrapper, error) {
	path := httpclient.PathEscape("tools", id, "versions", versionID, descriptorType, "descriptor", relPath)
	fw, err := c.fileWrapper(ctx, descriptorType, path)
	if err != nil {
		return nil, fmt.Errorf("fetching %s descriptor %q for tool %q version %q: %w", descriptorType, relPath, id, versionID, err)
	}
	return fw, nil
}

func (c *Client) fileWrapper(ctx context.Context, descriptorType, path string) (*ga4gh.FileWrapper, error) {
	if IsPlainType(descriptorType) {
		body, _, err := c.http.GetBytes(ctx, path, nil)
		if err != nil {
			return nil, err
		}
		return &ga4gh.FileWrapper{Content: string(body)}, nil
	}
	var fw ga4gh.FileWrapper
	if _, err := c.http.GetJSON(ctx, path, nil, &fw); err != nil {
		return nil, err
	}
	return &fw, nil
}

// Tests lists the test parameter files of a version.
func (c *Client) Tests(ctx context.Context, id, versionID, descriptorType string) ([]ga4gh.FileWrapper, error) {
	var tests []ga4gh.FileWrapper
	path := httpclient.PathEscape("tools", id, "versions", versionID, descriptorType, "tests")
	if _, err := c.http.GetJSON(ctx, path, nil, &tests); err != nil {
		return nil, fmt.Errorf("fetching %s tests for tool %q version %q: %w", descriptorType, id, versionID, err)
	}
	return tests, nil
}

// Files lists the files that make up a version.
func (c *Client) Files(ctx context.Context, id, versionID, descriptorType string) ([]ga4gh.ToolFile, error) {
	var files []ga4gh.ToolFile
	path := httpclient.PathEscape("tools", id, "versions", versionID, descriptorType, "files")
	if _, err := c.http.GetJSON(ctx, path, nil, &files); err != nil {
		return nil, fmt.Errorf("fetching %s files for tool %q version %q: %w", descriptorType, id, versionID, err)
	}
	return files, nil
}

// FilesZip downloads every file of a version as one zip archive.
func (c *Client) FilesZip(ctx context.Context, id, versionID, descriptorType string) ([]byte, error) {
	path := httpclient.PathEscape("tools", id, "versions", versionID, descriptorType, "files")
	body, _, err := c.http.GetBytes(ctx, path, url.Values{"format": {"zip"}})
	if err != nil {
		return nil, fmt.Errorf("downloading %s files for tool %q version %q: %w", descriptorType, id, versionID, err)
	}
	return body, nil
}

// Containerfile lists the container recipes (e.g. Dockerfiles) of a version.
func (c *Client) Containerfile(ctx context.Context, id, versionID string) ([]ga4gh.FileWrapper, error) {
	var files []ga4gh.FileWrapper
	path := httpclient.PathEscape("tools", id, "versions", versionID, "containerfile")
	if _, err := c.http.GetJSON(ctx, path, nil, &files); err != nil {
		return nil, fmt.Errorf("fetching containerfile for tool %q version %q: %w", id, versionID, err)
	}
	return files, nil
}

// ToolClasses lists the tool classes the registry uses.
func (c *Client) ToolClasses(ctx context.Context) ([]ga4gh.ToolClass, error) {
	var classes []ga4gh.ToolClass
	if _, err := c.http.GetJSON(ctx, "toolClasses", nil, &classes); err != nil {
		return nil, fmt.Errorf("listing tool classes: %w", err)
	}
	return classes, nil
}
