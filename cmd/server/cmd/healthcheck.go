package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	healthcheckCmd = &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Performs a readiness check by calling the /readyz endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.
It exits with code 0 if the server is ready, non-zero otherwise.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(healthcheckTimeout)*time.Second)
			defer cancel()
			return performHealthCheck(ctx, healthcheckTarget())
		},
	}

	healthcheckTimeout int
	healthcheckURL     string
)

func init() {
	healthcheckCmd.Flags().IntVar(&healthcheckTimeout, "timeout", 5, "timeout in seconds")
	healthcheckCmd.Flags().StringVar(&healthcheckURL, "url", "", "readiness URL (default: http://localhost:{SERVER_PORT}/readyz)")
}

// HealthResponse mirrors the /readyz body.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func healthcheckTarget() string {
	if healthcheckURL != "" {
		return healthcheckURL
	}
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return fmt.Sprintf("http://localhost:%s/readyz", port)
}

// performHealthCheck returns nil only for a 200 response reporting "ready".
func performHealthCheck(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var health HealthResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&health)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil {
			return fmt.Errorf("unhealthy: status %d (%s)", resp.StatusCode, failingChecks(health))
		}
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("invalid health response: %w", decodeErr)
	}
	if health.Status != "ready" {
		return fmt.Errorf("unhealthy: status=%s", health.Status)
	}
	return nil
}

func failingChecks(health HealthResponse) string {
	for name, check := range health.Checks {
		if check.Status != "pass" {
			return name + ": " + check.Message
		}
	}
	return health.Status
}
