package trs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"pgregory.net/rapid"

	"github.com/fairbio/fairbio-cli/internal/httpclient"
	"github.com/fairbio/fairbio-cli/internal/tracing"
)

const toolID = "#workflow/github.com/org/repo"

// requestLog records the escaped path and query of every request.
type requestLog struct {
	mu   sync.Mutex
	reqs []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		entry += "?" + r.URL.RawQuery
	}
	l.reqs = append(l.reqs, entry)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.reqs...)
}

func newServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*httptest.Server, *requestLog) {
	t.Helper()
	rl := &requestLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rl.add(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, rl
}

func newClient(t *testing.T, registryURL string) *Client {
	t.Helper()
	c, err := NewClient(registryURL, httpclient.Options{})
	require.NoError(t, err)
	return c
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://dockstore.org/api", "https://dockstore.org/api/ga4gh/trs/v2"},
		{"https://dockstore.org/api/", "https://dockstore.org/api/ga4gh/trs/v2"},
		{"https://dockstore.org/api/ga4gh/trs/v2", "https://dockstore.org/api/ga4gh/trs/v2"},
		{"https://dockstore.org/api/ga4gh/trs/v2/", "https://dockstore.org/api/ga4gh/trs/v2"},
		{"https://workflowhub.eu", "https://workflowhub.eu/ga4gh/trs/v2"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := BaseURL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := BaseURL("  ")
	require.ErrorIs(t, err, ErrRegistryRequired)

	_, err = NewClient("", httpclient.Options{})
	require.ErrorIs(t, err, ErrRegistryRequired)
}

func TestBaseURL_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		host := rapid.StringMatching(`[a-z]{1,10}\.(org|eu|com)`).Draw(t, "host")
		prefix := rapid.SampledFrom([]string{"", "/api", "/v1/api"}).Draw(t, "prefix")
		withAPIPath := rapid.Bool().Draw(t, "withAPIPath")
		slashes := rapid.IntRange(0, 3).Draw(t, "slashes")

		in := "https://" + host + prefix
		if withAPIPath {
			in += APIPath
		}
		in += strings.Repeat("/", slashes)

		got, err := BaseURL(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "https://" + host + prefix + APIPath
		if got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", in, got, want)
		}
		again, _ := BaseURL(got)
		if again != got {
			t.Fatalf("BaseURL is not idempotent: %q -> %q", got, again)
		}
	})
}

func TestClient_ToolsBareArrayWithHeaders(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("next_page", "https://x/ga4gh/trs/v2/tools?limit=2&offset=2")
		w.Header().Set("last_page", "https://x/ga4gh/trs/v2/tools?limit=2&offset=8")
		w.Header().Set("current_offset", "0")
		w.Header().Set("current_limit", "2")
		_, _ = w.Write([]byte(`[{"id":"a","url":"u","organization":"o","toolclass":{},"versions":[]},{"id":"b","url":"u","organization":"o","toolclass":{},"versions":[]}]`))
	})

	c := newClient(t, srv.URL)
	page, err := c.Tools(context.Background(), ToolQuery{
		Limit:          2,
		ToolName:       "bwa",
		DescriptorType: "CWL",
		Author:         "",
	})
	require.NoError(t, err)
	require.Len(t, page.Tools, 2)
	assert.Equal(t, "b", page.Tools[1].ID)
	assert.Equal(t, Pagination{
		CurrentOffset: "0",
		CurrentLimit:  "2",
		NextPage:      "https://x/ga4gh/trs/v2/tools?limit=2&offset=2",
		LastPage:      "https://x/ga4gh/trs/v2/tools?limit=2&offset=8",
	}, page.Pagination)
	assert.Equal(t, "2", page.Pagination.NextOffset())

	assert.Equal(t, []string{"/ga4gh/trs/v2/tools?descriptorType=CWL&limit=2&toolname=bwa"}, rl.all())
}

func TestClient_ToolsEnvelopeOverridesHeaders(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("next_page", "https://x/tools?offset=999")
		w.Header().Set("self_link", "https://x/tools?offset=0")
		_, _ = w.Write([]byte(`{"tools":[{"id":"a","url":"u","organization":"o","toolclass":{},"versions":[]}],"next_page":"https://x/tools?offset=1","current_offset":0,"current_limit":1,"last_page":null}`))
	})

	c := newClient(t, srv.URL+APIPath)
	page, err := c.Tools(context.Background(), ToolQuery{Limit: 1, Offset: "0"})
	require.NoError(t, err)
	require.Len(t, page.Tools, 1)
	assert.Equal(t, "https://x/tools?offset=1", page.Pagination.NextPage)
	assert.Equal(t, "https://x/tools?offset=0", page.Pagination.SelfLink)
	assert.Equal(t, "0", page.Pagination.CurrentOffset)
	assert.Equal(t, "1", page.Pagination.CurrentLimit)
	assert.Empty(t, page.Pagination.LastPage)
}

func TestClient_ToolsSingleObject(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"only","url":"u","organization":"o","toolclass":{},"versions":[]}`))
	})

	page, err := newClient(t, srv.URL).Tools(context.Background(), ToolQuery{})
	require.NoError(t, err)
	require.Len(t, page.Tools, 1)
	assert.Equal(t, "only", page.Tools[0].ID)
	assert.True(t, page.Pagination.IsZero())
}

func TestClient_ToolsDefaultLimit(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	page, err := newClient(t, srv.URL).Tools(context.Background(), ToolQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Tools)
	assert.NotNil(t, page.Tools)
	assert.Equal(t, []string{"/ga4gh/trs/v2/tools?limit=1000"}, rl.all())
}

// pagedHandler serves pages of size 1 from ids. Every page but the last
// advertises the next offset in a next_page header.
func pagedHandler(ids []string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := 0
		if o := r.URL.Query().Get("offset"); o != "" {
			_, _ = fmt.Sscanf(o, "%d", &offset)
		}
		if offset >= len(ids) {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		if offset+1 < len(ids) {
			w.Header().Set("next_page", fmt.Sprintf("http://%s/ga4gh/trs/v2/tools?limit=1&offset=%d", r.Host, offset+1))
		}
		_, _ = fmt.Fprintf(w, `[{"id":%q,"url":"u","organization":"o","toolclass":{},"versions":[]}]`, ids[offset])
	}
}

func TestClient_AllTools_ThreePagesThenStop(t *testing.T) {
	srv, rl := newServer(t, pagedHandler([]string{"t1", "t2", "t3"}))

	coll, err := newClient(t, srv.URL).AllTools(context.Background(), ToolQuery{Limit: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, coll.TotalPages)
	assert.Equal(t, 3, coll.TotalCount)
	assert.Equal(t, 1, coll.PageSize)
	require.Len(t, coll.AllTools, 3)
	assert.Equal(t, "t3", coll.AllTools[2].ID)
	assert.Equal(t, []string{
		"/ga4gh/trs/v2/tools?limit=1",
		"/ga4gh/trs/v2/tools?limit=1&offset=1",
		"/ga4gh/trs/v2/tools?limit=1&offset=2",
	}, rl.all())
}

func TestClient_AllTools_EmptyPageStops(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("next_page", "http://x/tools?offset=5")
		_, _ = w.Write([]byte(`[]`))
	})

	coll, err := newClient(t, srv.URL).AllTools(context.Background(), ToolQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, coll.TotalPages)
	assert.Equal(t, 0, coll.TotalCount)
	assert.NotNil(t, coll.AllTools)
	assert.Len(t, rl.all(), 1)
}

func TestClient_AllTools_NextPageWithoutOffsetStops(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("next_page", "http://x/tools?page=2")
		_, _ = w.Write([]byte(`[{"id":"a","url":"u","organization":"o","toolclass":{},"versions":[]}]`))
	})

	coll, err := newClient(t, srv.URL).AllTools(context.Background(), ToolQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, coll.TotalPages)
	assert.Len(t, rl.all(), 1)
}

func TestClient_AllTools_RepeatedOffsetStops(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("next_page", "http://x/tools?offset=7")
		_, _ = w.Write([]byte(`[{"id":"a","url":"u","organization":"o","toolclass":{},"versions":[]}]`))
	})

	coll, err := newClient(t, srv.URL).AllTools(context.Background(), ToolQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, coll.TotalPages, "first page, then offset 7 once")
	assert.Equal(t, 2, coll.TotalCount)
	assert.Len(t, rl.all(), 2)
}

func TestClient_AllTools_StartsFromQueryOffset(t *testing.T) {
	srv, rl := newServer(t, pagedHandler([]string{"t1", "t2", "t3", "t4"}))

	coll, err := newClient(t, srv.URL).AllTools(context.Background(), ToolQuery{Limit: 1, Offset: "2"})
	require.NoError(t, err)
	assert.Equal(t, 2, coll.TotalPages)
	assert.Equal(t, "t3", coll.AllTools[0].ID)
	assert.Equal(t, "/ga4gh/trs/v2/tools?limit=1&offset=2", rl.all()[0])
}

func TestClient_AllTools_ErrorDiscardsPartialResults(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("offset") == "1" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("next_page", "http://x/tools?offset=1")
		_, _ = w.Write([]byte(`[{"id":"a","url":"u","organization":"o","toolclass":{},"versions":[]}]`))
	})

	coll, err := newClient(t, srv.URL).AllTools(context.Background(), ToolQuery{})
	require.Error(t, err)
	require.Nil(t, coll)
	require.Contains(t, err.Error(), "fetching tools page 2")
}

func TestClient_AllTools_CancelledContext(t *testing.T) {
	srv, rl := newServer(t, pagedHandler([]string{"t1", "t2"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newClient(t, srv.URL).AllTools(ctx, ToolQuery{Limit: 1})
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rl.all())
}

func TestClient_AllTools_Terminates(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "pages")
		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("tool-%d", i)
		}

		srv := httptest.NewServer(http.HandlerFunc(pagedHandler(ids)))
		defer srv.Close()

		c, err := NewClient(srv.URL, httpclient.Options{})
		if err != nil {
			t.Fatal(err)
		}
		coll, err := c.AllTools(context.Background(), ToolQuery{Limit: 1})
		if err != nil {
			t.Fatal(err)
		}
		if coll.TotalPages != n || coll.TotalCount != n {
			t.Fatalf("pages=%d count=%d, want %d", coll.TotalPages, coll.TotalCount, n)
		}
		for i, tool := range coll.AllTools {
			if tool.ID != ids[i] {
				t.Fatalf("tool %d = %q, want %q", i, tool.ID, ids[i])
			}
		}
	})
}

func TestClient_AllTools_PageSpans(t *testing.T) {
	srv, _ := newServer(t, pagedHandler([]string{"t1", "t2"}))

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	c, err := NewClient(srv.URL, httpclient.Options{Tracer: tp.Tracer("test")})
	require.NoError(t, err)
	_, err = c.AllTools(context.Background(), ToolQuery{Limit: 1})
	require.NoError(t, err)

	var pages, requests int
	for _, s := range recorder.Ended() {
		switch {
		case s.Name() == tracing.SpanPrefixPage:
			pages++
		case strings.HasPrefix(s.Name(), tracing.SpanPrefixHTTP):
			requests++
			require.True(t, s.Parent().IsValid(), "http span must be a child of the page span")
		}
	}
	assert.Equal(t, 2, pages)
	assert.Equal(t, 2, requests)
}

func TestClient_ToolPathsAreEscaped(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.EscapedPath(), "/versions"):
			_, _ = w.Write([]byte(`[{"id":"v1","url":"u","descriptor_type":["CWL"]}]`))
		case strings.Contains(r.URL.EscapedPath(), "/versions/"):
			_, _ = w.Write([]byte(`{"id":"v1.0","url":"u","is_production":true}`))
		default:
			_, _ = w.Write([]byte(`{"id":"#workflow/github.com/org/repo","url":"u","organization":"org","toolclass":{"name":"Workflow"},"versions":[]}`))
		}
	})

	c := newClient(t, srv.URL)
	ctx := context.Background()

	tool, err := c.Tool(ctx, toolID)
	require.NoError(t, err)
	assert.Equal(t, "Workflow", tool.ToolClass.Name)

	versions, err := c.Versions(ctx, toolID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	v, err := c.Version(ctx, toolID, "v1.0")
	require.NoError(t, err)
	assert.True(t, v.IsProduction)

	assert.Equal(t, []string{
		"/ga4gh/trs/v2/tools/%23workflow%2Fgithub.com%2Forg%2Frepo",
		"/ga4gh/trs/v2/tools/%23workflow%2Fgithub.com%2Forg%2Frepo/versions",
		"/ga4gh/trs/v2/tools/%23workflow%2Fgithub.com%2Forg%2Frepo/versions/v1.0",
	}, rl.all())
}

func TestClient_Descriptor(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.EscapedPath(), "/PLAIN_CWL/") {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("cwlVersion: v1.2\nclass: Workflow\n"))
			return
		}
		_, _ = w.Write([]byte(`{"content":"cwlVersion: v1.2","url":"https://raw/main.cwl","checksum":[{"checksum":"abc","type":"sha256"}]}`))
	})

	c := newClient(t, srv.URL)
	ctx := context.Background()

	fw, err := c.Descriptor(ctx, toolID, "v1", "CWL")
	require.NoError(t, err)
	assert.Equal(t, "cwlVersion: v1.2", fw.Content)
	assert.Equal(t, "https://raw/main.cwl", fw.URL)

	plain, err := c.Descriptor(ctx, toolID, "v1", "PLAIN_CWL")
	require.NoError(t, err)
	assert.Equal(t, "cwlVersion: v1.2\nclass: Workflow\n", plain.Content)

	nested, err := c.DescriptorAtPath(ctx, toolID, "v1", "CWL", "tools/align.cwl")
	require.NoError(t, err)
	assert.Equal(t, "cwlVersion: v1.2", nested.Content)

	assert.Equal(t, []string{
		"/ga4gh/trs/v2/tools/%23workflow%2Fgithub.com%2Forg%2Frepo/versions/v1/CWL/descriptor",
		"/ga4gh/trs/v2/tools/%23workflow%2Fgithub.com%2Forg%2Frepo/versions/v1/PLAIN_CWL/descriptor",
		"/ga4gh/trs/v2/tools/%23workflow%2Fgithub.com%2Forg%2Frepo/versions/v1/CWL/descriptor/tools%2Falign.cwl",
	}, rl.all())
}

func TestClient_FilesTestsContainerfileClasses(t *testing.T) {
	srv, rl := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.EscapedPath()
		switch {
		case strings.HasSuffix(p, "/files") && r.URL.Query().Get("format") == "zip":
			_, _ = w.Write([]byte("PK\x03\x04zip"))
		case strings.HasSuffix(p, "/files"):
			_, _ = w.Write([]byte(`[{"path":"main.wdl","file_type":"PRIMARY_DESCRIPTOR"},{"path":"test.json","file_type":"TEST_FILE"}]`))
		case strings.HasSuffix(p, "/tests"):
			_, _ = w.Write([]byte(`[{"url":"https://raw/test.json","content":"{}"}]`))
		case strings.HasSuffix(p, "/containerfile"):
			_, _ = w.Write([]byte(`[{"url":"https://raw/Dockerfile","content":"FROM ubuntu"}]`))
		case strings.HasSuffix(p, "/toolClasses"):
			_, _ = w.Write([]byte(`[{"id":"0","name":"CommandLineTool","description":"A tool"},{"id":"1","name":"Workflow"}]`))
		case strings.HasSuffix(p, "/service-info"):
			_, _ = w.Write([]byte(`{"id":"org.dockstore","name":"Dockstore","type":{"group":"org.ga4gh","artifact":"trs","version":"2.0.1"},"organization":{"name":"OICR","url":"https://oicr.on.ca"},"version":"1.15"}`))
		default:
			http.NotFound(w, r)
		}
	})

	c := newClient(t, srv.URL)
	ctx := context.Background()

	files, err := c.Files(ctx, "quay.io/org/tool", "1.0", "WDL")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "TEST_FILE", files[1].FileType)

	zip, err := c.FilesZip(ctx, "quay.io/org/tool", "1.0", "WDL")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(zip), "PK"))

	tests, err := c.Tests(ctx, "quay.io/org/tool", "1.0", "WDL")
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "https://raw/test.json", tests[0].URL)

	cf, err := c.Containerfile(ctx, "quay.io/org/tool", "1.0")
	require.NoError(t, err)
	require.Len(t, cf, 1)
	assert.Equal(t, "FROM ubuntu", cf[0].Content)

	classes, err := c.ToolClasses(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.Equal(t, "Workflow", classes[1].Name)

	info, err := c.ServiceInfo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OICR", info.Organization.Name)

	reqs := rl.all()
	assert.Equal(t, "/ga4gh/trs/v2/tools/quay.io%2Forg%2Ftool/versions/1.0/WDL/files?format=zip", reqs[1])
	assert.Equal(t, "/ga4gh/trs/v2/toolClasses", reqs[4])
}

func TestClient_NotFound(t *testing.T) {
	srv, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	_, err := newClient(t, srv.URL).Tool(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, httpclient.IsNotFound(err))
	assert.Contains(t, err.Error(), `fetching tool "nope"`)
}

func TestIsPlainType(t *testing.T) {
	assert.True(t, IsPlainType("PLAIN_CWL"))
	assert.True(t, IsPlainType("plain_wdl"))
	assert.False(t, IsPlainType("CWL"))
	assert.False(t, IsPlainType("NFL"))
}

func TestToolQuery_Filters(t *testing.T) {
	checker := true
	q := ToolQuery{
		ID:             "x",
		ToolName:       "bwa",
		Author:         "Jane",
		Organization:   "org",
		ToolClass:      "Workflow",
		DescriptorType: "WDL",
		Checker:        &checker,
	}
	assert.Equal(t, map[string]string{
		"id":             "x",
		"toolname":       "bwa",
		"author":         "Jane",
		"organization":   "org",
		"toolClass":      "Workflow",
		"descriptorType": "WDL",
		"checker":        "true",
	}, q.Filters())
	assert.Empty(t, ToolQuery{Limit: 5}.Filters())
}

func TestDecodePage_Invalid(t *testing.T) {
	_, err := decodePage([]byte(`"nope"`), nil)
	require.Error(t, err)

	_, err = decodePage([]byte(`{"tools":"nope"}`), nil)
	require.Error(t, err)

	page, err := decodePage([]byte(` null `), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Tools)
}

func TestPagination_NextOffset(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", ""},
		{"https://x/tools?limit=10&offset=20", "20"},
		{"/tools?offset=abc", "abc"},
		{"https://x/tools", ""},
		{"https://x/tools?page=3", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		t.Run(tt.next, func(t *testing.T) {
			require.Equal(t, tt.want, Pagination{NextPage: tt.next}.NextOffset())
		})
	}
}
