package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	assert.Equal(t, version, GetVersion())
	assert.NotEmpty(t, GetVersion())
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := GetRootCmd()

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}

	assert.True(t, names["serve"])
	assert.True(t, names["status"])
}

func TestVersionFlag(t *testing.T) {
	root := GetRootCmd()

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), "version "+version)
}

func TestStatusAgainstRunningDaemon(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"status":"running","uptime":42.7,"activeRecordings":2}`))
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	root := GetRootCmd()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"status", "--host", u.Hostname(), "--port", strconv.Itoa(port)})

	require.NoError(t, root.Execute())
	out := buf.String()
	assert.Contains(t, out, "status: running")
	assert.Contains(t, out, "uptime: 43s")
	assert.Contains(t, out, "recordings: 2")
}

func TestStatusUnreachableDaemon(t *testing.T) {
	root := GetRootCmd()
	root.SetOut(new(bytes.Buffer))
	root.SetErr(new(bytes.Buffer))
	root.SetArgs([]string{"status", "--host", "127.0.0.1", "--port", "1"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestLoadConfigWithOverride(t *testing.T) {
	cfgFile = ""
	logLevel = "debug"
	defer func() { logLevel = "" }()

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigRejectsInvalidLevel(t *testing.T) {
	cfgFile = ""
	logLevel = "extreme"
	defer func() { logLevel = "" }()

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
