package output

import (
	"time"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
	"github.com/fairbio/fairbio-cli/internal/trs"
)

// Every envelope starts with the time the command ran.

// Now returns the current local time in RFC 3339 form.
func Now() string {
	return time.Now().Format(time.RFC3339)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Service registry envelopes.

type ServicesEnvelope struct {
	Timestamp     string          `json:"timestamp"`
	TotalServices int             `json:"total_services"`
	FilterType    *string         `json:"filter_type"`
	Services      []ga4gh.Service `json:"services"`
}

// NewServicesEnvelope counts services. An empty filter is recorded as null.
func NewServicesEnvelope(services []ga4gh.Service, filter string) ServicesEnvelope {
	env := ServicesEnvelope{
		Timestamp:     Now(),
		TotalServices: len(services),
		Services:      nonNil(services),
	}
	if filter != "" {
		env.FilterType = &filter
	}
	return env
}

type ServiceEnvelope struct {
	Timestamp string         `json:"timestamp"`
	Service   *ga4gh.Service `json:"service"`
}

type ServiceTypesEnvelope struct {
	Timestamp    string              `json:"timestamp"`
	TotalTypes   int                 `json:"total_types"`
	ServiceTypes []ga4gh.ServiceType `json:"service_types"`
}

func NewServiceTypesEnvelope(types []ga4gh.ServiceType) ServiceTypesEnvelope {
	return ServiceTypesEnvelope{Timestamp: Now(), TotalTypes: len(types), ServiceTypes: nonNil(types)}
}

type RegistryInfoEnvelope struct {
	Timestamp    string             `json:"timestamp"`
	RegistryInfo *ga4gh.ServiceInfo `json:"registry_info"`
}

// TRS envelopes.

// AllPagesSummary replaces the page cursor when every page was fetched.
type AllPagesSummary struct {
	TotalPages int `json:"total_pages"`
	PageSize   int `json:"page_size"`
}

type ToolsEnvelope struct {
	Timestamp   string `json:"timestamp"`
	RegistryURL string `json:"registry_url"`
	// Pagination is a trs.Pagination for one page or an AllPagesSummary.
	Pagination any               `json:"pagination"`
	TotalTools int               `json:"total_tools"`
	Filters    map[string]string `json:"filters"`
	Tools      []ga4gh.Tool      `json:"tools"`
}

// NewToolsEnvelope describes a single page.
func NewToolsEnvelope(registryURL string, page *trs.ToolPage, filters map[string]string) ToolsEnvelope {
	return ToolsEnvelope{
		Timestamp:   Now(),
		RegistryURL: registryURL,
		Pagination:  page.Pagination,
		TotalTools:  len(page.Tools),
		Filters:     nilIfEmpty(filters),
		Tools:       nonNil(page.Tools),
	}
}

// NewAllToolsEnvelope describes the result of following every page.
func NewAllToolsEnvelope(registryURL string, coll *trs.ToolCollection, filters map[string]string) ToolsEnvelope {
	return ToolsEnvelope{
		Timestamp:   Now(),
		RegistryURL: registryURL,
		Pagination:  AllPagesSummary{TotalPages: coll.TotalPages, PageSize: coll.PageSize},
		TotalTools:  coll.TotalCount,
		Filters:     nilIfEmpty(filters),
		Tools:       nonNil(coll.AllTools),
	}
}

func nilIfEmpty(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}

type ToolEnvelope struct {
	Timestamp   string      `json:"timestamp"`
	RegistryURL string      `json:"registry_url"`
	Tool        *ga4gh.Tool `json:"tool"`
}

type VersionsEnvelope struct {
	Timestamp     string              `json:"timestamp"`
	RegistryURL   string              `json:"registry_url"`
	ToolID        string              `json:"tool_id"`
	TotalVersions int                 `json:"total_versions"`
	Versions      []ga4gh.ToolVersion `json:"versions"`
}

func NewVersionsEnvelope(registryURL, toolID string, versions []ga4gh.ToolVersion) VersionsEnvelope {
	return VersionsEnvelope{
		Timestamp:     Now(),
		RegistryURL:   registryURL,
		ToolID:        toolID,
		TotalVersions: len(versions),
		Versions:      nonNil(versions),
	}
}

type VersionEnvelope struct {
	Timestamp   string             `json:"timestamp"`
	RegistryURL string             `json:"registry_url"`
	ToolID      string             `json:"tool_id"`
	Version     *ga4gh.ToolVersion `json:"version"`
}

type DescriptorEnvelope struct {
	Timestamp      string             `json:"timestamp"`
	RegistryURL    string             `json:"registry_url"`
	ToolID         string             `json:"tool_id"`
	Version        string             `json:"version"`
	DescriptorType string             `json:"descriptor_type"`
	Path           string             `json:"path,omitempty"`
	Descriptor     *ga4gh.FileWrapper `json:"descriptor"`
}

type FilesEnvelope struct {
	Timestamp      string           `json:"timestamp"`
	RegistryURL    string           `json:"registry_url"`
	ToolID         string           `json:"tool_id"`
	Version        string           `json:"version"`
	DescriptorType string           `json:"descriptor_type"`
	TotalFiles     int              `json:"total_files"`
	Files          []ga4gh.ToolFile `json:"files"`
}

func NewFilesEnvelope(registryURL, toolID, version, descriptorType string, files []ga4gh.ToolFile) FilesEnvelope {
	return FilesEnvelope{
		Timestamp:      Now(),
		RegistryURL:    registryURL,
		ToolID:         toolID,
		Version:        version,
		DescriptorType: descriptorType,
		TotalFiles:     len(files),
		Files:          nonNil(files),
	}
}

type TestsEnvelope struct {
	Timestamp      string              `json:"timestamp"`
	RegistryURL    string              `json:"registry_url"`
	ToolID         string              `json:"tool_id"`
	Version        string              `json:"version"`
	DescriptorType string              `json:"descriptor_type"`
	TotalTests     int                 `json:"total_tests"`
	Tests          []ga4gh.FileWrapper `json:"tests"`
}

func NewTestsEnvelope(registryURL, toolID, version, descriptorType string, tests []ga4gh.FileWrapper) TestsEnvelope {
	return TestsEnvelope{
		Timestamp:      Now(),
		RegistryURL:    registryURL,
		ToolID:         toolID,
		Version:        version,
		DescriptorType: descriptorType,
		TotalTests:     len(tests),
		Tests:          nonNil(tests),
	}
}

type ContainerfileEnvelope struct {
	Timestamp           string              `json:"timestamp"`
	RegistryURL         string              `json:"registry_url"`
	ToolID              string              `json:"tool_id"`
	Version             string              `json:"version"`
	TotalContainerfiles int                 `json:"total_containerfiles"`
	Containerfiles      []ga4gh.FileWrapper `json:"containerfiles"`
}

func NewContainerfileEnvelope(registryURL, toolID, version string, files []ga4gh.FileWrapper) ContainerfileEnvelope {
	return ContainerfileEnvelope{
		Timestamp:           Now(),
		RegistryURL:         registryURL,
		ToolID:              toolID,
		Version:             version,
		TotalContainerfiles: len(files),
		Containerfiles:      nonNil(files),
	}
}

type ToolClassesEnvelope struct {
	Timestamp    string            `json:"timestamp"`
	RegistryURL  string            `json:"registry_url"`
	TotalClasses int               `json:"total_classes"`
	ToolClasses  []ga4gh.ToolClass `json:"tool_classes"`
}

func NewToolClassesEnvelope(registryURL string, classes []ga4gh.ToolClass) ToolClassesEnvelope {
	return ToolClassesEnvelope{
		Timestamp:    Now(),
		RegistryURL:  registryURL,
		TotalClasses: len(classes),
		ToolClasses:  nonNil(classes),
	}
}

type ServiceInfoEnvelope struct {
	Timestamp   string             `json:"timestamp"`
	RegistryURL string             `json:"registry_url"`
	ServiceInfo *ga4gh.ServiceInfo `json:"service_info"`
}
