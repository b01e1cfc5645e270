package ga4gh

import "encoding/json"

// ToolClass describes the kind of tool, e.g. "Workflow" or "CommandLineTool".
type ToolClass struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ImageData is a container image referenced by a tool version.
type ImageData struct {
	RegistryHost string     `json:"registry_host,omitempty"`
	ImageName    string     `json:"image_name,omitempty"`
	Size         int64      `json:"size,omitempty"`
	Updated      string     `json:"updated,omitempty"`
	Checksum     []Checksum `json:"checksum,omitempty"`
	ImageType    string     `json:"image_type,omitempty"`
}

// Checksum is a typed digest.
type Checksum struct {
	Checksum string `json:"checksum"`
	Type     string `json:"type"`
}

// ToolVersion is one released version of a tool.
type ToolVersion struct {
	ID             string      `json:"id"`
	URL            string      `json:"url"`
	Name           string      `json:"name,omitempty"`
	Author         []string    `json:"author,omitempty"`
	IsProduction   bool        `json:"is_production,omitempty"`
	Images         []ImageData `json:"images,omitempty"`
	DescriptorType []string    `json:"descriptor_type,omitempty"`
	Containerfile  bool        `json:"containerfile,omitempty"`
	MetaVersion    string      `json:"meta_version,omitempty"`
	Verified       bool        `json:"verified,omitempty"`
	VerifiedSource []string    `json:"verified_source,omitempty"`
	Signed         bool        `json:"signed,omitempty"`
	IncludedApps   []string    `json:"included_apps,omitempty"`

	raw json.RawMessage
}

func (v *ToolVersion) UnmarshalJSON(data []byte) error {
	type plain ToolVersion
	return decodeKeepRaw(data, (*plain)(v), &v.raw)
}

func (v ToolVersion) MarshalJSON() ([]byte, error) {
	type plain ToolVersion
	return encodeRaw(v.raw, plain(v))
}

// Tool is a TRS tool or workflow.
type Tool struct {
	ID           string        `json:"id"`
	URL          string        `json:"url"`
	Name         string        `json:"name,omitempty"`
	Aliases      []string      `json:"aliases,omitempty"`
	Organization string        `json:"organization"`
	Description  string        `json:"description,omitempty"`
	ToolClass    ToolClass     `json:"toolclass"`
	HasChecker   bool          `json:"has_checker,omitempty"`
	CheckerURL   string        `json:"checker_url,omitempty"`
	MetaVersion  string        `json:"meta_version,omitempty"`
	Versions     []ToolVersion `json:"versions"`

	raw json.RawMessage
}

func (t *Tool) UnmarshalJSON(data []byte) error {
	type plain Tool
	return decodeKeepRaw(data, (*plain)(t), &t.raw)
}

func (t Tool) MarshalJSON() ([]byte, error) {
	type plain Tool
	return encodeRaw(t.raw, plain(t))
}

// FileWrapper carries descriptor, test or container file content.
type FileWrapper struct {
	Content   string     `json:"content,omitempty"`
	Checksum  []Checksum `json:"checksum,omitempty"`
	ImageType string     `json:"image_type,omitempty"`
	URL       string     `json:"url,omitempty"`

	raw json.RawMessage
}

func (f *FileWrapper) UnmarshalJSON(data []byte) error {
	type plain FileWrapper
	return decodeKeepRaw(data, (*plain)(f), &f.raw)
}

func (f FileWrapper) MarshalJSON() ([]byte, error) {
	type plain FileWrapper
	return encodeRaw(f.raw, plain(f))
}

// ToolFile is an entry of a version's file listing.
type ToolFile struct {
	Path     string    `json:"path"`
	FileType string    `json:"file_type"`
	Checksum *Checksum `json:"checksum,omitempty"`

	raw json.RawMessage
}

func (f *ToolFile) UnmarshalJSON(data []byte) error {
	type plain ToolFile
	return decodeKeepRaw(data, (*plain)(f), &f.raw)
}

func (f ToolFile) MarshalJSON() ([]byte, error) {
	type plain ToolFile
	return encodeRaw(f.raw, plain(f))
}
