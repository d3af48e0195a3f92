package runner

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/learnquest/internal/executor"
	"github.com/sakif/learnquest/internal/executor/workspace"
)

func testToolchain() executor.Toolchain {
	return executor.Toolchain{
		Python:            "python3",
		Node:              "node",
		Npx:               "npx",
		Javac:             "javac",
		Java:              "java",
		Dotnet:            "dotnet",
		Shell:             "/bin/sh",
		JUnitConsoleJar:   "/opt/junit/junit-platform-console-standalone.jar",
		TestNGJar:         "/opt/testng/testng.jar",
		SeleniumRemoteURL: "http://localhost:4444/wd/hub",
	}
}

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := workspace.NewManager(t.TempDir(), logger)
	require.NoError(t, err)
	ws, err := m.Open()
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() }) //nolint:errcheck
	return ws
}

func TestRegistryLookup_SupportedPairs(t *testing.T) {
	reg := NewRegistry(testToolchain())

	tests := []struct {
		lang      executor.Language
		framework string
	}{
		{executor.LangPython, ""},
		{executor.LangPython, "pytest"},
		{executor.LangPython, "unittest"},
		{executor.LangJavaScript, ""},
		{executor.LangJavaScript, "mocha"},
		{executor.LangJavaScript, "jest"},
		{executor.LangJava, ""},
		{executor.LangJava, "junit"},
		{executor.LangJava, "testng"},
		{executor.LangCSharp, ""},
		{executor.LangCSharp, "nunit"},
		{executor.LangCSharp, "xunit"},
	}

	for _, tt := range tests {
		rn, err := reg.Lookup(executor.Request{Language: tt.lang, Framework: tt.framework})
		assert.NoError(t, err, "%s/%s", tt.lang, tt.framework)
		assert.NotNil(t, rn)
	}
}

func TestRegistryLookup_FrameworkCaseInsensitive(t *testing.T) {
	reg := NewRegistry(testToolchain())

	rn, err := reg.Lookup(executor.Request{Language: executor.LangPython, Framework: "PyTest"})
	assert.NoError(t, err)
	assert.NotNil(t, rn)

	rn, err = reg.Lookup(executor.Request{Language: executor.LangJava, Framework: " JUnit "})
	assert.NoError(t, err)
	assert.NotNil(t, rn)
}

func TestRegistryLookup_Unsupported(t *testing.T) {
	reg := NewRegistry(testToolchain())

	tests := []executor.Request{
		{Language: "ruby"},
		{Language: executor.LangPython, Framework: "rspec"},
		{Language: executor.LangJava, Framework: "pytest"},
	}

	for _, req := range tests {
		_, err := reg.Lookup(req)
		assert.ErrorIs(t, err, executor.ErrUnsupported, "%s/%s", req.Language, req.Framework)
	}
}

func TestRegistryLookup_Selenium(t *testing.T) {
	reg := NewRegistry(testToolchain())

	// Valid inner pair returns the harness.
	rn, err := reg.Lookup(executor.Request{
		Language:    executor.LangSelenium,
		SubLanguage: executor.LangPython,
		Framework:   "pytest",
	})
	assert.NoError(t, err)
	assert.IsType(t, &Harness{}, rn)

	// Missing subLanguage is rejected before anything runs.
	_, err = reg.Lookup(executor.Request{Language: executor.LangSelenium})
	assert.ErrorIs(t, err, executor.ErrUnsupported)

	// Invalid inner pair is rejected too.
	_, err = reg.Lookup(executor.Request{
		Language:    executor.LangSelenium,
		SubLanguage: "ruby",
	})
	assert.ErrorIs(t, err, executor.ErrUnsupported)
}

func TestRegistrySupported_Matrix(t *testing.T) {
	reg := NewRegistry(testToolchain())
	m := reg.Supported()

	assert.ElementsMatch(t, []string{"pytest", "unittest"}, m["python"])
	assert.ElementsMatch(t, []string{"mocha", "jest"}, m["javascript"])
	assert.ElementsMatch(t, []string{"junit", "testng"}, m["java"])
	assert.ElementsMatch(t, []string{"nunit", "xunit"}, m["csharp"])
	assert.Contains(t, m, "selenium")
}

func TestWriteAux_RejectsEscapingNames(t *testing.T) {
	ws := newTestWorkspace(t)

	err := writeAux(executor.Request{
		Files: map[string]string{"../evil.txt": "x"},
	}, ws)
	assert.Error(t, err)

	err = writeAux(executor.Request{
		Files: map[string]string{".hidden": "x"},
	}, ws)
	assert.Error(t, err)
}

func TestSourceError_IsNotUnsupported(t *testing.T) {
	// The two pre-spawn failure modes stay distinguishable for the dispatcher.
	var srcErr *SourceError
	err := error(&SourceError{Reason: "no public class"})
	assert.True(t, errors.As(err, &srcErr))
	assert.False(t, errors.Is(err, executor.ErrUnsupported))
}
