// Package render prints the human-readable summaries shown after each
// command. Styling degrades to plain text when the writer is not a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/fairbio/fairbio-cli/internal/ga4gh"
	"github.com/fairbio/fairbio-cli/internal/trs"
)

const (
	maxServices     = 10
	maxTools        = 10
	maxToolVersions = 5
	maxImages       = 5
	maxFiles        = 20
	previewRunes    = 500
	classDescWidth  = 50
	na              = "N/A"
)

// Summary writes styled summaries to one writer.
type Summary struct {
	w       io.Writer
	heading lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	flag    lipgloss.Style
}

// New creates a Summary whose color profile is detected from w.
func New(w io.Writer) *Summary {
	r := lipgloss.NewRenderer(w)
	return &Summary{
		w:       w,
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}),
		label:   r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#9CA3AF"}),
		muted:   r.NewStyle().Faint(true),
		flag:    r.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#34D399"}),
	}
}

func (s *Summary) line(format string, args ...any) {
	_, _ = fmt.Fprintf(s.w, format+"\n", args...)
}

func (s *Summary) title(t string) {
	s.line("")
	s.line("%s", s.heading.Render(t))
}

func (s *Summary) field(name, value string) {
	s.line("  %s %s", s.label.Render(name+":"), orNA(value))
}

func (s *Summary) more(indent string, n int) {
	s.line("%s%s", indent, s.muted.Render(fmt.Sprintf("... and %d more", n)))
}

func orNA(v string) string {
	if v == "" {
		return na
	}
	return v
}

// Message prints a plain status line such as "Found 3 services".
func (s *Summary) Message(format string, args ...any) {
	s.line(format, args...)
}

// Services lists the first services as "N. id - name".
func (s *Summary) Services(services []ga4gh.Service) {
	s.title("Services Summary:")
	for i, svc := range services {
		if i == maxServices {
			s.more("  ", len(services)-maxServices)
			break
		}
		s.line("  %d. %s - %s", i+1, orNA(svc.ID), orNA(svc.Name))
	}
}

// Service prints the details of one service.
func (s *Summary) Service(svc *ga4gh.Service) {
	s.title("Service Details:")
	s.field("ID", svc.ID)
	s.field("Name", svc.Name)
	s.field("URL", svc.URL)
	s.field("Description", svc.Description)
}

// ServiceTypes lists types as "N. artifact (vVERSION) - group".
func (s *Summary) ServiceTypes(types []ga4gh.ServiceType) {
	s.title("Service Types:")
	for i, t := range types {
		s.line("  %d. %s (v%s) - %s", i+1, orNA(t.Artifact), orNA(t.Version), orNA(t.Group))
	}
}

// ServiceInfo describes a registry or TRS service.
func (s *Summary) ServiceInfo(info *ga4gh.ServiceInfo) {
	s.title("Service Information:")
	s.field("ID", info.ID)
	s.field("Name", info.Name)
	s.field("URL", info.URL)
	s.field("Description", info.Description)
	s.field("Version", info.Version)
	if info.Organization.Name != "" {
		s.field("Organization", info.Organization.Name)
	}
}

// Tools lists the first tools of a page.
func (s *Summary) Tools(tools []ga4gh.Tool) {
	s.title("Tools Summary:")
	for i, tool := range tools {
		if i == maxTools {
			s.more("  ", len(tools)-maxTools)
			break
		}
		s.line("  %d. %s", i+1, orNA(tool.ID))
		s.line("     %s %s, %s %s", s.label.Render("Name:"), orNA(tool.Name), s.label.Render("Org:"), orNA(tool.Organization))
	}
}

// PageCursor prints the cursor of a single page, when the registry sent one.
func (s *Summary) PageCursor(p trs.Pagination) {
	if p.CurrentOffset == "" {
		return
	}
	s.title("Pagination:")
	s.field("Current Offset", p.CurrentOffset)
	s.field("Current Limit", p.CurrentLimit)
	if p.NextPage != "" {
		s.field("Next Page Available", "Yes")
	}
	if p.LastPage != "" {
		s.field("Has Last Page", "Yes")
	}
}

// AllPages summarises an auto-paginated listing.
func (s *Summary) AllPages(coll *trs.ToolCollection) {
	s.title("Pagination Summary:")
	s.field("Total Tools", fmt.Sprintf("%d tools in %d pages retrieved", coll.TotalCount, coll.TotalPages))
	s.field("Page Size", fmt.Sprintf("%d", coll.PageSize))
}

// Tool prints tool details and its first versions.
func (s *Summary) Tool(tool *ga4gh.Tool) {
	s.title("Tool Details:")
	s.field("ID", tool.ID)
	s.field("Name", tool.Name)
	s.field("URL", tool.URL)
	s.field("Organization", tool.Organization)
	s.field("Description", tool.Description)
	s.field("Tool Class", tool.ToolClass.Name)
	s.field("Versions", fmt.Sprintf("%d", len(tool.Versions)))
	for i, v := range tool.Versions {
		if i == maxToolVersions {
			s.more("    ", len(tool.Versions)-maxToolVersions)
			break
		}
		s.line("    - %s (%s)", orNA(v.ID), orNA(v.Name))
	}
}

// Versions lists every version with its descriptor types.
func (s *Summary) Versions(versions []ga4gh.ToolVersion) {
	s.title("Tool Versions:")
	for i, v := range versions {
		marker := ""
		if v.IsProduction {
			marker = " " + s.flag.Render("[PRODUCTION]")
		}
		s.line("  %d. %s (%s)%s", i+1, orNA(v.ID), orNA(v.Name), marker)
		if len(v.DescriptorType) > 0 {
			s.line("     %s %s", s.label.Render("Descriptor Types:"), strings.Join(v.DescriptorType, ", "))
		}
	}
}

// Version prints one version and its first container images.
func (s *Summary) Version(v *ga4gh.ToolVersion) {
	s.title("Version Details:")
	s.field("ID", v.ID)
	s.field("Name", v.Name)
	s.field("URL", v.URL)
	s.field("Production", fmt.Sprintf("%t", v.IsProduction))
	s.field("Verified", fmt.Sprintf("%t", v.Verified))
	s.field("Descriptor Types", strings.Join(v.DescriptorType, ", "))
	if len(v.Images) == 0 {
		return
	}
	s.line("  %s", s.label.Render("Container Images:"))
	for i, img := range v.Images {
		if i == maxImages {
			s.more("    ", len(v.Images)-maxImages)
			break
		}
		s.line("    - %s", orNA(img.ImageName))
	}
}

// Descriptor previews the start of a descriptor.
func (s *Summary) Descriptor(fw *ga4gh.FileWrapper) {
	s.title("Descriptor Preview:")
	if fw.Content == "" {
		s.line("%s", na)
		return
	}
	content := []rune(fw.Content)
	if len(content) <= previewRunes {
		s.line("%s", fw.Content)
		return
	}
	s.line("%s", string(content[:previewRunes]))
	s.line("%s", s.muted.Render("... (truncated)"))
}

// Files lists the first files as "N. path (file_type)".
func (s *Summary) Files(files []ga4gh.ToolFile) {
	s.title("Files:")
	for i, f := range files {
		if i == maxFiles {
			s.more("  ", len(files)-maxFiles)
			break
		}
		s.line("  %d. %s (%s)", i+1, orNA(f.Path), orNA(f.FileType))
	}
}

// Tests lists test files by URL.
func (s *Summary) Tests(tests []ga4gh.FileWrapper) {
	s.title("Test Files:")
	for i, t := range tests {
		s.line("  %d. %s", i+1, orNA(t.URL))
	}
}

// Containerfiles lists container recipes by URL with their checksum count.
func (s *Summary) Containerfiles(files []ga4gh.FileWrapper) {
	s.title("Containerfiles:")
	for i, f := range files {
		s.line("  %d. %s (%d checksums)", i+1, orNA(f.URL), len(f.Checksum))
	}
}

// ToolClasses lists classes with a shortened description.
func (s *Summary) ToolClasses(classes []ga4gh.ToolClass) {
	s.title("Tool Classes:")
	for i, c := range classes {
		s.line("  %d. %s", i+1, orNA(c.ID))
		s.line("     %s %s", s.label.Render("Name:"), orNA(c.Name))
		s.line("     %s", s.muted.Render(ansi.Truncate(orNA(c.Description), classDescWidth, "")+"..."))
	}
}
