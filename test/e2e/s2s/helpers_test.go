package s2s_test

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/s2sauth/pkg/authsdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcexec "github.com/testcontainers/testcontainers-go/exec"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Container setup and helpers for the S2S authentication end-to-end tests.
 */

const (
	testImageName = "s2s-auth-test:latest"
	jwtSecret     = "e2e-test-secret-please-change"
)

// TestMain builds the Docker image once and removes it after all tests.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building S2S Auth Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up S2S Auth Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/s2s-auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

type authContainer struct {
	container testcontainers.Container
	baseURL   string
}

// setupAuthContainer starts the service with relaxed rate limits unless
// defaultLimits is set.
func setupAuthContainer(t *testing.T, defaultLimits bool) *authContainer {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"S2S_JWT_SECRET":           jwtSecret,
		"S2S_ISSUER":               "s2s-auth",
		"S2S_FIELD_ENCRYPTION_KEY": "e2e-field-key",
		"ENV":                      "test",
		"LOG_LEVEL":                "info",
		"LOG_FORMAT":               "json",
	}
	if !defaultLimits {
		// Tests make many rapid requests which would otherwise hit the strict limits
		env["RATELIMIT_STRICT_REQUESTS"] = "1000"
		env["RATELIMIT_STRICT_BURST"] = "1000"
		env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
		env["RATELIMIT_MODERATE_BURST"] = "1000"
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          env,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return &authContainer{
		container: container,
		baseURL:   fmt.Sprintf("http://%s:%s", host, mappedPort.Port()),
	}
}

// cli runs the s2s-auth binary inside the container and returns its output.
func (a *authContainer) cli(t *testing.T, args ...string) string {
	t.Helper()

	code, reader, err := a.container.Exec(t.Context(), append([]string{"/s2s-auth"}, args...), tcexec.Multiplexed())
	require.NoError(t, err)

	out, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, 0, code, "s2s-auth %v: %s", args, out)
	return string(out)
}

// registerService registers name through the CLI and returns its API key.
func (a *authContainer) registerService(t *testing.T, name string) string {
	t.Helper()

	out := a.cli(t, "register-service", "--name", name, "--owner", name+"@example.com")

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		if key, ok := strings.CutPrefix(scanner.Text(), "API key: "); ok {
			return strings.TrimSpace(key)
		}
	}
	t.Fatalf("no API key in register-service output: %s", out)
	return ""
}

// newClient returns an authsdk client for a freshly registered service.
func (a *authContainer) newClient(t *testing.T, name string) *authsdk.Client {
	t.Helper()

	client, err := authsdk.NewClient(authsdk.ClientConfig{
		APIKey:       a.registerService(t, name),
		ServiceName:  name,
		AuthEndpoint: a.baseURL,
	})
	require.NoError(t, err)
	return client
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
