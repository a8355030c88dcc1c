//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestConfig holds configuration for integration tests.
type TestConfig struct {
	BaseAddress string
	Token       string
	RecapiPath  string
	Verbose     bool
}

// LoadTestConfig loads configuration from environment variables.
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		BaseAddress: os.Getenv("RECAPI_INTEGRATION_URL"),
		Token:       os.Getenv("RECAPI_INTEGRATION_TOKEN"),
		RecapiPath:  getRecapiPath(),
		Verbose:     os.Getenv("RECAPI_VERBOSE") == "true",
	}
}

// getRecapiPath determines the path to the recapi binary.
func getRecapiPath() string {
	if path := os.Getenv("RECAPI_BINARY_PATH"); path != "" {
		return path
	}

	candidates := []string{
		"../../recapi",
		"./recapi",
		"../recapi",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "recapi"
}

// SkipIfMissingConfig skips the test when no backend is configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.BaseAddress == "" {
		t.Skip("RECAPI_INTEGRATION_URL not set, skipping integration test")
	}
}

// SkipIfMissingBinary skips the test when the recapi binary cannot be found.
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.RecapiPath); err != nil {
		t.Skipf("recapi binary not found at %s, skipping integration test", config.RecapiPath)
	}
}

// CommandRunner runs recapi commands against the configured backend with an
// isolated credentials file.
type CommandRunner struct {
	config          *TestConfig
	credentialsPath string
	t               *testing.T
}

// NewCommandRunner creates a new command runner.
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	return &CommandRunner{
		config:          config,
		credentialsPath: filepath.Join(t.TempDir(), "credentials.yml"),
		t:               t,
	}
}

// Run executes a recapi command and returns its output.
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--api", runner.config.BaseAddress}, args...)

	cmd := exec.Command(runner.config.RecapiPath, args...)
	cmd.Env = append(os.Environ(), "RECAPI_CREDENTIALS_PATH="+runner.credentialsPath)

	var stdoutBuf, stderrBuf bytes.Buffer

	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.RecapiPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// Login stores the configured token for later commands.
func (runner *CommandRunner) Login() error {
	if runner.config.Token == "" {
		return nil
	}

	_, _, err := runner.Run("login", "--token", runner.config.Token)

	return err
}

// AssertJSONOutput verifies command output is valid JSON.
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	if !json.Valid([]byte(strings.TrimSpace(output))) {
		t.Errorf("Output is not JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output is valid YAML.
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	var out interface{}
	if err := yaml.Unmarshal([]byte(output), &out); err != nil || out == nil {
		t.Errorf("Output is not YAML: %s", output)
	}
}
