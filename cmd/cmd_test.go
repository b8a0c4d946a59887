package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/slimview/internal/config"
	"github.com/conneroisu/slimview/internal/errors"
	"github.com/conneroisu/slimview/internal/version"
)

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd, stdout, stderr
}

func writeFile(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "convert", "nvim", "config", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, rootCmd.PersistentFlags().ShorthandLookup("l"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("log-format"))
	assert.NotNil(t, serveCmd.Flags().ShorthandLookup("p"))
	assert.NotNil(t, serveCmd.Flags().Lookup("no-open"))
	assert.NotNil(t, serveCmd.Flags().Lookup("read-only"))
	assert.NotNil(t, convertCmd.Flags().ShorthandLookup("o"))
}

func TestValidatePort(t *testing.T) {
	assert.NoError(t, ValidatePort("8080"))
	assert.Error(t, ValidatePort("0"))
	assert.Error(t, ValidatePort("70000"))
	assert.Error(t, ValidatePort("http"))
}

func TestPortFlagValidation(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	flags := AddStandardFlags(cmd, "server")

	assert.Error(t, cmd.Flags().Set("port", "99999"))
	require.NoError(t, cmd.Flags().Set("port", "9000"))
	assert.Equal(t, 9000, flags.Port)
}

func TestStandardFlagsValidate(t *testing.T) {
	assert.NoError(t, (&StandardFlags{Port: 8080, Host: "localhost"}).ValidateFlags())
	assert.NoError(t, (&StandardFlags{}).ValidateFlags())
	assert.Error(t, (&StandardFlags{Port: 70000, Host: "localhost"}).ValidateFlags())
	assert.Error(t, (&StandardFlags{Port: 8080}).ValidateFlags())
}

func TestValidateFormat(t *testing.T) {
	assert.NoError(t, ValidateFormat("json", "yaml", "json"))
	err := ValidateFormat("toml", "yaml", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supported: yaml, json")
}

func TestWriteFormatted(t *testing.T) {
	value := map[string]interface{}{"port": 8080}

	var buf bytes.Buffer
	require.NoError(t, writeFormatted(&buf, "json", value))
	assert.JSONEq(t, `{"port": 8080}`, buf.String())

	buf.Reset()
	require.NoError(t, writeFormatted(&buf, "yaml", value))
	assert.Equal(t, "port: 8080\n", buf.String())

	assert.Error(t, writeFormatted(&buf, "xml", value))
}

func TestConfigShow(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("server.port", 9100)

	cmd, stdout, _ := newTestCommand()

	configFormat = "yaml"
	require.NoError(t, runConfigShow(cmd, nil))

	var shown config.Config
	require.NoError(t, yaml.Unmarshal(stdout.Bytes(), &shown))
	assert.Equal(t, 9100, shown.Server.Port)
	assert.Equal(t, "slim-to-html", shown.Preview.Scheme)

	stdout.Reset()
	configFormat = "json"
	require.NoError(t, runConfigShow(cmd, nil))
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &shown))
	assert.Equal(t, 9100, shown.Server.Port)

	configFormat = "toml"
	assert.Error(t, runConfigShow(cmd, nil))
	configFormat = "yaml"
}

func TestConfigShowInvalid(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("conversion.html_endpoint", "ftp://example.com")

	cmd, _, _ := newTestCommand()
	configFormat = "yaml"
	assert.Error(t, runConfigShow(cmd, nil))
}

func TestVersionCommand(t *testing.T) {
	defer func() {
		versionFormat = "text"
		versionShort = false
	}()

	cmd, stdout, _ := newTestCommand()

	versionFormat, versionShort = "text", false
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Contains(t, stdout.String(), "slimview "+version.GetVersion())
	assert.Contains(t, stdout.String(), "Go: ")

	stdout.Reset()
	versionShort = true
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Equal(t, version.GetShortVersion()+"\n", stdout.String())

	stdout.Reset()
	versionFormat = "json"
	require.NoError(t, runVersionCommand(cmd, nil))
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &info))
	assert.Equal(t, version.GetVersion(), info.Version)

	stdout.Reset()
	versionFormat = "yaml"
	require.NoError(t, runVersionCommand(cmd, nil))
	assert.Contains(t, stdout.String(), "version: ")

	versionFormat = "xml"
	assert.Error(t, runVersionCommand(cmd, nil))
}

func newConversionService(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.PostForm.Get("html") == "p(":
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"errors":{"html":{"message":"bad syntax"}}}`)
		case r.PostForm.Get("html") != "":
			fmt.Fprintf(w, `{"results":{"html":"<p>%s</p>"}}`, r.PostForm.Get("html")[2:])
		default:
			fmt.Fprint(w, `{"data":{"slim":"p Hello"}}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestConvertCommand(t *testing.T) {
	srv := newConversionService(t)
	viper.Reset()
	defer viper.Reset()
	viper.Set("conversion.html_endpoint", srv.URL)
	viper.Set("conversion.slim_endpoint", srv.URL)
	viper.Set("logging.level", "error")

	t.Run("slim to stdout", func(t *testing.T) {
		convertFlags = &StandardFlags{}
		cmd, stdout, _ := newTestCommand()
		source := writeFile(t, "page.slim", "p Hello")

		require.NoError(t, runConvert(cmd, []string{source}))
		assert.Equal(t, "<p>Hello</p>\n", stdout.String())
	})

	t.Run("html to file", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "page.slim")
		convertFlags = &StandardFlags{Output: out}
		cmd, stdout, _ := newTestCommand()
		source := writeFile(t, "page.html", "<p>Hello</p>")

		require.NoError(t, runConvert(cmd, []string{source}))
		assert.Empty(t, stdout.String())

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "p Hello\n", string(data))
	})

	t.Run("service error", func(t *testing.T) {
		convertFlags = &StandardFlags{}
		cmd, _, _ := newTestCommand()
		source := writeFile(t, "broken.slim", "p(")

		err := runConvert(cmd, []string{source})
		require.Error(t, err)
		assert.Equal(t, "bad syntax", err.Error())
		assert.Equal(t, errors.ErrorTypeService, errors.TypeOf(err))

		var pe *errors.PreviewError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, source, pe.Path)
	})

	t.Run("unsupported file", func(t *testing.T) {
		convertFlags = &StandardFlags{}
		cmd, _, _ := newTestCommand()
		source := writeFile(t, "notes.md", "# hi")

		err := runConvert(cmd, []string{source})
		require.Error(t, err)
		assert.Equal(t, errors.ErrorTypeValidation, errors.TypeOf(err))
	})

	t.Run("missing file", func(t *testing.T) {
		convertFlags = &StandardFlags{}
		cmd, _, _ := newTestCommand()

		assert.Error(t, runConvert(cmd, []string{filepath.Join(t.TempDir(), "missing.slim")}))
	})
}

func TestServeRejectsBadSource(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	serveFlags = &StandardFlags{Port: 8080, Host: "localhost"}
	cmd, _, _ := newTestCommand()

	err := runServe(cmd, []string{filepath.Join(t.TempDir(), "missing.slim")})
	assert.Error(t, err)

	serveFlags = &StandardFlags{Port: 70000, Host: "localhost"}
	assert.Error(t, runServe(cmd, []string{"page.slim"}))
}
