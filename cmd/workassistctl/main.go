package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var serverURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "workassistctl",
		Short: "workassist CLI - interact with your workassist server",
		Long: `workassistctl is a command-line interface for the workassist dashboard server.
All output is structured JSON (pipe through jq for human-readable formatting).`,
		Version: version,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", getDefaultServer(), "workassist server URL")

	// Add subcommands
	rootCmd.AddCommand(newPersonaCommand())
	rootCmd.AddCommand(newAssistCommand())
	rootCmd.AddCommand(newTaskCommand())
	rootCmd.AddCommand(newDashboardCommand())
	rootCmd.AddCommand(newCredentialCommand())
	rootCmd.AddCommand(newLogCommand())
	rootCmd.AddCommand(newEventCommand())
	rootCmd.AddCommand(newStatusCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getDefaultServer() string {
	if server := os.Getenv("WORKASSIST_SERVER"); server != "" {
		return server
	}
	return "http://localhost:8080"
}

// --- HTTP client ---

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func newClient() *Client {
	// The cookie jar keeps requests within one invocation in the same
	// server session.
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: serverURL,
		HTTP:    &http.Client{Timeout: 60 * time.Second, Jar: jar},
	}
}

func (c *Client) do(method, path string, params url.Values, data interface{}) ([]byte, error) {
	u := fmt.Sprintf("%s%s", c.BaseURL, path)
	if params != nil {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal data: %w", err)
		}
		body = strings.NewReader(string(jsonData))
	}

	req, err := http.NewRequest(method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func (c *Client) get(path string, params url.Values) ([]byte, error) {
	return c.do("GET", path, params, nil)
}

func (c *Client) post(path string, data interface{}) ([]byte, error) {
	return c.do("POST", path, nil, data)
}

func (c *Client) delete(path string) ([]byte, error) {
	return c.do("DELETE", path, nil, nil)
}

// streamSSE reads an SSE stream and prints each event's data field as JSON.
func (c *Client) streamSSE(path string) error {
	u := fmt.Sprintf("%s%s", c.BaseURL, path)
	resp, err := c.HTTP.Get(u)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			fmt.Println(line[6:])
		}
	}
	return scanner.Err()
}

// outputJSON pretty-prints raw JSON data.
func outputJSON(data []byte) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		fmt.Println(string(data))
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// --- Persona commands ---

func newPersonaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Inspect assistant personas",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/personas", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Show one persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/personas/"+args[0], nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})
	return cmd
}

// --- Assist command ---

func newAssistCommand() *cobra.Command {
	var (
		personaID string
		context   string
		priority  string
		urgency   string
	)
	cmd := &cobra.Command{
		Use:     "assist <problem>",
		Short:   "Get expert assistance for a problem",
		Example: `  workassistctl assist "Defect rate climbing on line 3" --persona=six-sigma-black-belt --priority=High`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]interface{}{
				"persona_id":          personaID,
				"problem_description": args[0],
			}
			if context != "" {
				body["additional_context"] = context
			}
			if priority != "" {
				body["priority"] = priority
			}
			if urgency != "" {
				body["urgency"] = urgency
			}
			data, err := newClient().post("/api/v1/assist", body)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().StringVarP(&personaID, "persona", "p", "general-assistant", "Persona ID")
	cmd.Flags().StringVarP(&context, "context", "c", "", "Additional context")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: Low, Medium, High, Critical")
	cmd.Flags().StringVar(&urgency, "urgency", "", "Urgency: Low, Medium, High, Immediate")
	return cmd
}

// --- Task commands ---

func newTaskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage the session task log",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("limit", fmt.Sprintf("%d", limit))
			data, err := newClient().get("/api/v1/tasks", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum tasks to list")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear the task log",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().delete("/api/v1/tasks")
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})
	return cmd
}

// --- Dashboard commands ---

func newDashboardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "View dashboard analytics",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "metrics",
		Short: "Show summary metric cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/dashboard/metrics", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})

	var days int
	seriesCmd := &cobra.Command{
		Use:   "series",
		Short: "Show the performance time series",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if days > 0 {
				params.Set("days", fmt.Sprintf("%d", days))
			}
			data, err := newClient().get("/api/v1/dashboard/series", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	seriesCmd.Flags().IntVarP(&days, "days", "d", 0, "Trailing window in days (0 = full year)")
	cmd.AddCommand(seriesCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "knowledge-base",
		Short: "Show quick actions and best practices",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/knowledge-base", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})
	return cmd
}

// --- Credential commands ---

func newCredentialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the provider credential",
	}

	var apiKey string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the provider API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiKey == "" {
				apiKey = os.Getenv("ANTHROPIC_API_KEY")
			}
			if apiKey == "" {
				return fmt.Errorf("provide --key or set ANTHROPIC_API_KEY")
			}
			data, err := newClient().post("/api/v1/config/credential", map[string]string{"api_key": apiKey})
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	setCmd.Flags().StringVarP(&apiKey, "key", "k", "", "API key (defaults to ANTHROPIC_API_KEY)")
	cmd.AddCommand(setCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the provider API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().delete("/api/v1/config/credential")
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})
	return cmd
}

// --- Log commands ---

func newLogCommand() *cobra.Command {
	var (
		limit  int
		level  string
		source string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent server logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("limit", fmt.Sprintf("%d", limit))
			if level != "" {
				params.Set("level", level)
			}
			if source != "" {
				params.Set("source", source)
			}
			data, err := newClient().get("/api/v1/logs", params)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum entries")
	cmd.Flags().StringVar(&level, "level", "", "Filter by level")
	cmd.Flags().StringVar(&source, "source", "", "Filter by source")
	return cmd
}

// --- Event commands ---

func newEventCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect server events",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "recent",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/events", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Stream events as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newClient().streamSSE("/api/v1/events/stream")
		},
	})
	return cmd
}

// --- Status command ---

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := newClient().get("/api/v1/health", nil)
			if err != nil {
				return err
			}
			outputJSON(data)
			return nil
		},
	}
}
