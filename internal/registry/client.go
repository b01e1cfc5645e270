// Package registry is a client for the GA4GH Service Registry API.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
	"github.com/fairbio/fairbio-cli/internal/httpclient"
	"github.com/fairbio/fairbio-cli/internal/log"
)

// DefaultURL is the public GA4GH service registry.
const DefaultURL = "https://registry.ga4gh.org/v1"

// Client queries one service registry.
type Client struct {
	http *httpclient.Client
}

// NewClient returns a client for registryURL, or DefaultURL when empty.
func NewClient(registryURL string, opts httpclient.Options) *Client {
	return &Client{http: httpclient.New(NormalizeURL(registryURL), opts)}
}

// NormalizeURL applies the default and leaves exactly one trailing slash.
func NormalizeURL(registryURL string) string {
	u := strings.TrimSpace(registryURL)
	if u == "" {
		u = DefaultURL
	}
	return strings.TrimRight(u, "/") + "/"
}

// URL returns the normalised registry URL.
func (c *Client) URL() string {
	return c.http.BaseURL()
}

// Services lists every service in the registry.
func (c *Client) Services(ctx context.Context) ([]ga4gh.Service, error) {
	var services []ga4gh.Service
	if _, err := c.http.GetJSON(ctx, "services", nil, &services); err != nil {
		return nil, fmt.Errorf("listing services: %w", err)
	}
	log.Debug(log.CatRegistry, "listed services", "count", len(services))
	return services, nil
}

// Service fetches one service by id.
func (c *Client) Service(ctx context.Context, id string) (*ga4gh.Service, error) {
	var svc ga4gh.Service
	if _, err := c.http.GetJSON(ctx, httpclient.PathEscape("services", id), nil, &svc); err != nil {
		return nil, fmt.Errorf("fetching service %q: %w", id, err)
	}
	return &svc, nil
}

// ServiceTypes lists the distinct service types the registry knows.
func (c *Client) ServiceTypes(ctx context.Context) ([]ga4gh.ServiceType, error) {
	var types []ga4gh.ServiceType
	if _, err := c.http.GetJSON(ctx, "services/types", nil, &types); err != nil {
		return nil, fmt.Errorf("listing service types: %w", err)
	}
	return types, nil
}

// ServiceInfo describes the registry itself.
func (c *Client) ServiceInfo(ctx context.Context) (*ga4gh.ServiceInfo, error) {
	var info ga4gh.ServiceInfo
	if _, err := c.http.GetJSON(ctx, "service-info", nil, &info); err != nil {
		return nil, fmt.Errorf("fetching registry info: %w", err)
	}
	return &info, nil
}

// ServicesByType lists services and keeps those matching serviceType.
func (c *Client) ServicesByType(ctx context.Context, serviceType string) ([]ga4gh.Service, error) {
	services, err := c.Services(ctx)
	if err != nil {
		return nil, err
	}
	filtered := FilterByType(services, serviceType)
	log.Debug(log.CatRegistry, "filtered services", "type", serviceType, "matched", len(filtered), "total", len(services))
	return filtered, nil
}

// FilterByType keeps services whose type matches t, see ga4gh.ServiceType.Matches.
// The input order is preserved and the input slice is not modified.
func FilterByType(services []ga4gh.Service, t string) []ga4gh.Service {
	filtered := make([]ga4gh.Service, 0, len(services))
	for _, s := range services {
		if s.Type.Matches(t) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
