// syncctl is an operator CLI for the OPAL sync monitor API. It covers the
// day-to-day calls an operator makes by hand: trigger a force sync, poll a
// workflow, read aggregate health, and run a validation batch.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type clientOptions struct {
	serverURL  string
	token      string
	timeout    time.Duration
	jsonOutput bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &clientOptions{
		serverURL: os.Getenv("OPAL_MONITOR_SERVER"),
		token:     os.Getenv("OPAL_MONITOR_TOKEN"),
		timeout:   15 * time.Second,
	}

	root := &cobra.Command{
		Use:           "syncctl",
		Short:         "Operate the OPAL sync monitor",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", opts.serverURL, "Monitor API URL (default: http://localhost:8080 or $OPAL_MONITOR_SERVER)")
	root.PersistentFlags().StringVar(&opts.token, "token", opts.token, "Bearer token for protected endpoints (default: $OPAL_MONITOR_TOKEN)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", opts.timeout, "HTTP timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print raw JSON responses")

	root.AddCommand(newTriggerCommand(opts))
	root.AddCommand(newStatusCommand(opts))
	root.AddCommand(newHealthCommand(opts))
	root.AddCommand(newValidateCommand(opts))
	return root
}

func newTriggerCommand(opts *clientOptions) *cobra.Command {
	var scope string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Start a force sync run unless one is already active",
		RunE: func(_ *cobra.Command, _ []string) error {
			parsed, status, err := opts.call(http.MethodPost, "/api/sync/trigger", map[string]any{
				"sync_scope": scope,
				"dry_run":    dryRun,
			})
			if err != nil {
				return err
			}
			if status == http.StatusConflict {
				return fmt.Errorf("a sync is already active: %v", parsed["error"])
			}
			if status >= 300 {
				return fmt.Errorf("trigger failed (%d): %v", status, parsed)
			}
			if opts.jsonOutput {
				return printJSON(parsed)
			}
			if dryRun {
				fmt.Println("Dry run: a sync would be triggered")
				return nil
			}
			fmt.Printf("Triggered sync workflow %v (correlation %v)\n", parsed["workflow_id"], parsed["correlation_id"])
			return nil
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "full", "Sync scope to request")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check whether a sync could start without starting one")
	return cmd
}

func newStatusCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <workflow-id>",
		Short: "Poll the progress of one workflow run",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			parsed, status, err := opts.call(http.MethodGet, "/api/sync/status/"+args[0], nil)
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("status lookup failed (%d): %v", status, parsed)
			}
			if opts.jsonOutput {
				return printJSON(parsed)
			}
			fmt.Printf("Workflow %v: %v (%v%%)\n", parsed["workflow_id"], parsed["status"], parsed["progress"])
			if reason, ok := parsed["failure_reason"].(string); ok && reason != "" {
				fmt.Println("Failure reason:", reason)
			}
			return nil
		},
	}
}

func newHealthCommand(opts *clientOptions) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show aggregated system health",
		RunE: func(_ *cobra.Command, _ []string) error {
			method, path := http.MethodGet, "/api/health"
			if refresh {
				method, path = http.MethodPost, "/api/health/refresh"
			}
			parsed, status, err := opts.call(method, path, nil)
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("health request failed (%d): %v", status, parsed)
			}
			if opts.jsonOutput {
				return printJSON(parsed)
			}
			fmt.Printf("Status: %v\n", parsed["status"])
			data, _ := parsed["data"].(map[string]any)
			checks, _ := data["checks"].(map[string]any)
			for name, raw := range checks {
				check, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				line := fmt.Sprintf("  %-16s %v", name, check["status"])
				if detail, ok := check["detail"].(string); ok && detail != "" {
					line += "  " + detail
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "Force all probes to re-run instead of serving the cache")
	return cmd
}

func newValidateCommand(opts *clientOptions) *cobra.Command {
	var limit int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run a validation batch over completed workflows",
		RunE: func(_ *cobra.Command, _ []string) error {
			parsed, status, err := opts.call(http.MethodPost, "/api/validation/run", map[string]any{
				"limit":   limit,
				"dry_run": dryRun,
			})
			if err != nil {
				return err
			}
			if status >= 300 {
				return fmt.Errorf("validation run failed (%d): %v", status, parsed)
			}
			if opts.jsonOutput {
				return printJSON(parsed)
			}
			fmt.Printf("Processed %v workflow(s)\n", parsed["processed"])
			results, _ := parsed["results"].([]any)
			for _, raw := range results {
				item, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				if errMsg, ok := item["error"].(string); ok && errMsg != "" {
					fmt.Printf("  %v: error: %s\n", item["workflow_id"], errMsg)
					continue
				}
				fmt.Printf("  %v: %v\n", item["workflow_id"], item["overall_status"])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max workflows per batch (0 uses the server default)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute verdicts without persisting them")
	return cmd
}

// call issues one API request and decodes the JSON body regardless of status,
// so callers can surface the server's error payload.
func (o *clientOptions) call(method, path string, payload map[string]any) (map[string]any, int, error) {
	server := strings.TrimSpace(o.serverURL)
	if server == "" {
		server = "http://localhost:8080"
	}
	server = strings.TrimSuffix(server, "/")

	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server+path, body)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	client := &http.Client{Timeout: o.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return parsed, resp.StatusCode, nil
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
