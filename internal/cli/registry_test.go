package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairbio/fairbio-cli/internal/output"
)

const servicesJSON = `[
	{"id":"org.a.trs","name":"A TRS","type":{"group":"org.ga4gh","artifact":"trs","version":"2.0.1"},"organization":{"name":"A","url":"https://a.org"},"version":"1.0"},
	{"id":"org.b.wes","name":"B WES","type":{"group":"org.ga4gh","artifact":"wes","version":"1.1.0"},"organization":{"name":"B","url":"https://b.org"},"version":"2.0"},
	{"id":"org.c.drs","name":"C DRS","type":"drs","organization":{"name":"C","url":"https://c.org"},"version":"3.0"}
]`

func newRegistryServer(t *testing.T) (string, *requestLog) {
	t.Helper()
	srv, rl := serve(t, map[string]string{
		"/v1/services":       servicesJSON,
		"/v1/services/types": `[{"group":"org.ga4gh","artifact":"trs","version":"2.0.1"},{"group":"org.ga4gh","artifact":"wes","version":"1.1.0"}]`,
		"/v1/services/org.a.trs": `{"id":"org.a.trs","name":"A TRS","type":{"artifact":"trs"},"version":"1.0",` +
			`"url":"https://a.org/trs","x-extra":{"kept":true}}`,
		"/v1/service-info": `{"id":"org.ga4gh.registry","name":"GA4GH Registry","organization":{"name":"GA4GH","url":"https://ga4gh.org"},"version":"1.0.0"}`,
	})
	return srv.URL + "/v1", rl
}

func TestServices_JSON(t *testing.T) {
	isolate(t)
	url, rl := newRegistryServer(t)

	res := execute(t, NewRegistry, "-r", url, "services", "--json")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stderr, "Services Summary")

	env := decodeJSON(t, res.stdout)
	assert.EqualValues(t, 3, env["total_services"])
	assert.Nil(t, env["filter_type"])
	assert.Len(t, env["services"], 3)
	assert.Contains(t, env, "timestamp")
	assert.Equal(t, []string{"/v1/services"}, rl.all())
}

func TestServices_TypeFilterAsText(t *testing.T) {
	isolate(t)
	url, _ := newRegistryServer(t)

	res := execute(t, NewRegistry, "-r", url+"/", "services", "-t", "WES", "-o", "-", "-f", "text")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "total_services: 1\n")
	assert.Contains(t, res.stdout, "filter_type: WES\n")
	assert.Contains(t, res.stdout, "services[0].id: org.b.wes\n")
	assert.Contains(t, res.stderr, `Found 1 services of type "WES"`)
	assert.Contains(t, res.stderr, "1. org.b.wes - B WES")
}

func TestServices_SummaryOnlyByDefault(t *testing.T) {
	isolate(t)
	url, _ := newRegistryServer(t)

	res := execute(t, NewRegistry, "services", "--registry", url)
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "Found 3 services")
	assert.Contains(t, res.stderr, "3. org.c.drs - C DRS")
}

func TestServices_RegistryFromEnv(t *testing.T) {
	isolate(t)
	url, rl := newRegistryServer(t)
	t.Setenv("FAIRBIO_REGISTRY_URL", url)

	res := execute(t, NewRegistry, "services", "--json")
	require.NoError(t, res.err)
	assert.Equal(t, []string{"/v1/services"}, rl.all())
}

func TestServices_UnsupportedFormatFailsBeforeRequest(t *testing.T) {
	isolate(t)
	url, rl := newRegistryServer(t)

	res := execute(t, NewRegistry, "-r", url, "services", "-o", "out.xml", "-f", "xml")
	require.ErrorIs(t, res.err, output.ErrUnsupportedFormat)
	assert.Empty(t, rl.all())

	res = execute(t, NewRegistry, "-r", url, "services", "-o", "out.zip", "-f", "zip")
	require.ErrorIs(t, res.err, output.ErrUnsupportedFormat)
	assert.Empty(t, rl.all())
}

func TestService_SavesYAMLFile(t *testing.T) {
	isolate(t)
	url, _ := newRegistryServer(t)
	path := filepath.Join("out", "service.yaml")

	res := execute(t, NewRegistry, "-r", url, "service", "-i", "org.a.trs", "-o", path, "-f", "yaml")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "Results saved to "+path)
	assert.Contains(t, res.stderr, "URL: https://a.org/trs")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "service:\n  id: org.a.trs\n")
	assert.Contains(t, string(data), "  x-extra:\n    kept: true\n")
}

func TestService_RequiresID(t *testing.T) {
	isolate(t)
	url, rl := newRegistryServer(t)

	res := execute(t, NewRegistry, "-r", url, "service")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), `required flag(s) "id" not set`)
	assert.Empty(t, rl.all())
}

func TestService_NotFound(t *testing.T) {
	isolate(t)
	url, _ := newRegistryServer(t)

	res := execute(t, NewRegistry, "-r", url, "service", "--id", "org.missing")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "service org.missing not found")
	assert.Contains(t, res.err.Error(), "404")
}

func TestTypes(t *testing.T) {
	isolate(t)
	url, _ := newRegistryServer(t)

	res := execute(t, NewRegistry, "-r", url, "types", "-o", "-")
	require.NoError(t, res.err)

	env := decodeJSON(t, res.stdout)
	assert.EqualValues(t, 2, env["total_types"])
	assert.Contains(t, res.stderr, "1. trs (v2.0.1) - org.ga4gh")
}

func TestRegistryInfo(t *testing.T) {
	isolate(t)
	url, rl := newRegistryServer(t)

	res := execute(t, NewRegistry, "-r", url, "info", "--json")
	require.NoError(t, res.err)

	env := decodeJSON(t, res.stdout)
	info, ok := env["registry_info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "org.ga4gh.registry", info["id"])
	assert.Equal(t, []string{"/v1/service-info"}, rl.all())
}

func TestServices_ServerErrorFails(t *testing.T) {
	isolate(t)
	srv, _ := serve(t, map[string]string{})

	res := execute(t, NewRegistry, "-r", srv.URL+"/v1", "services")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "404")
}

func TestVerboseLogsRequests(t *testing.T) {
	isolate(t)
	url, _ := newRegistryServer(t)

	res := execute(t, NewRegistry, "-v", "-r", url, "types", "--json")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "Fetching service types")

	res = execute(t, NewRegistry, "-r", url, "types", "--json")
	require.NoError(t, res.err)
	assert.NotContains(t, res.stderr, "Fetching service types")
}
