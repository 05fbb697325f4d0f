package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haasonsaas/limitd/pkg/limiter"
)

var (
	serverURL string
	Version   = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "limitctl",
		Short: "limitctl - administer a limitd rate limiter",
		Long:  "Inspect limiter state, violations, and dashboard stats, and manage the active policy of a limitd server",
	}

	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "limitd server URL")

	rootCmd.AddCommand(
		statusCmd(),
		clientsCmd(),
		violationsCmd(),
		policyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show dashboard stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats limiter.Stats
			if err := fetchJSON("/v1/stats", &stats); err != nil {
				return err
			}

			fmt.Printf("limitd Status\n")
			fmt.Printf("=============\n\n")
			fmt.Printf("Total Requests:    %d\n", stats.TotalRequests)
			fmt.Printf("Rate Limited:      %d\n", stats.RateLimited)
			fmt.Printf("Active Clients:    %d\n", stats.ActiveClients)
			fmt.Printf("Avg Response Time: %.2fms\n", stats.AvgResponseTime)

			return nil
		},
	}
}

func clientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "clients",
		Aliases: []string{"ls", "list"},
		Short:   "List live client states, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var clients []limiter.ClientState
			if err := fetchJSON("/v1/clients", &clients); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CLIENT\tCOUNT\tSTATUS\tALGORITHM\tRESETS\tLAST SEEN")
			fmt.Fprintln(w, "------\t-----\t------\t---------\t------\t---------")

			for _, cs := range clients {
				resets := time.Until(cs.ResetTime).Round(time.Second)
				lastSeen := time.Since(cs.LastRequest).Round(time.Second)
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\tin %s\t%s ago\n",
					cs.ClientID, cs.RequestCount, cs.Status, cs.Algorithm, resets, lastSeen)
			}

			w.Flush()
			return nil
		},
	}
}

func violationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "violations",
		Short: "List recent violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			var violations []limiter.Violation
			if err := fetchJSON("/v1/violations", &violations); err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CLIENT\tENDPOINT\tATTEMPTS\tBLOCKED\tWHEN")
			fmt.Fprintln(w, "------\t--------\t--------\t-------\t----")

			for _, v := range violations {
				fmt.Fprintf(w, "%s\t%s\t%d\t%v\t%s ago\n",
					v.ClientID, v.Endpoint, v.Attempts, v.IsBlocked, time.Since(v.Timestamp).Round(time.Second))
			}

			w.Flush()
			return nil
		},
	}
}

func policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage the active policy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the active policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			var pol limiter.Policy
			if err := fetchJSON("/v1/policy", &pol); err != nil {
				return err
			}
			printPolicy(pol)
			return nil
		},
	})

	var (
		algorithm    string
		requestLimit int
		timeWindow   string
		clientIDType string
	)
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the active policy (clears all client state)",
		RunE: func(cmd *cobra.Command, args []string) error {
			pol := limiter.Policy{
				Algorithm:    limiter.Algorithm(algorithm),
				RequestLimit: requestLimit,
				TimeWindow:   timeWindow,
				ClientIDType: limiter.ClientIDType(clientIDType),
				Active:       true,
			}
			if err := putJSON("/v1/policy", pol, &pol); err != nil {
				return err
			}
			fmt.Println("Policy updated; all client state cleared.")
			printPolicy(pol)
			return nil
		},
	}
	setCmd.Flags().StringVar(&algorithm, "algorithm", "fixed-window", "fixed-window, sliding-window, or token-bucket")
	setCmd.Flags().IntVar(&requestLimit, "limit", 100, "Max requests per window")
	setCmd.Flags().StringVar(&timeWindow, "window", "1m", "Window duration (30s, 1m, 1h, 1d)")
	setCmd.Flags().StringVar(&clientIDType, "client-id", "ip", "ip, api-key, or user-id")
	cmd.AddCommand(setCmd)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("limitctl version %s\n", Version)
		},
	}
}

func printPolicy(pol limiter.Policy) {
	fmt.Printf("Algorithm:      %s\n", pol.Algorithm)
	fmt.Printf("Request Limit:  %d\n", pol.RequestLimit)
	fmt.Printf("Time Window:    %s\n", pol.TimeWindow)
	fmt.Printf("Client ID Type: %s\n", pol.ClientIDType)
	fmt.Printf("Active:         %v\n", pol.Active)
}

func fetchJSON(path string, out any) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

func putJSON(path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPut, serverURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, body)
	}
	if out != nil {
		return json.Unmarshal(body, out)
	}
	return nil
}
