package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourusername/batch-download-go/internal/domain"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "batch-download",
		Short: "Batch download CLI - resumable downloads of file groups",
		Long:  `A command-line interface for submitting and managing batches of file downloads.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(logsCmd)
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer() {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

// call sends a request to the server and decodes a successful JSON response into out
func call(method, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, serverURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (HTTP %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var submitCmd = &cobra.Command{
	Use:   "submit [url...]",
	Short: "Submit a batch of files to download",
	Long: `Submit a batch of files. Each argument is a network address, optionally
followed by '=>' and the destination path: 'https://host/a.zip=>/data/a.zip'`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		title, _ := cmd.Flags().GetString("title")
		id, _ := cmd.Flags().GetString("id")

		payload := map[string]interface{}{"title": title}
		if id != "" {
			payload["id"] = id
		}
		var files []map[string]string
		for _, arg := range args {
			address, path, _ := strings.Cut(arg, "=>")
			files = append(files, map[string]string{"network_address": address, "file_path": path})
		}
		payload["files"] = files

		var status domain.BatchStatus
		if err := call(http.MethodPost, "/api/v1/batches", payload, &status); err != nil {
			fail(err)
		}
		fmt.Printf("Batch submitted successfully!\n")
		fmt.Printf("ID:     %s\n", status.BatchID)
		fmt.Printf("Title:  %s\n", status.Title)
		fmt.Printf("Files:  %d\n", len(status.Files))
		fmt.Printf("Status: %s\n", status.Status)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all batches",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")

		path := "/api/v1/batches"
		if status != "" {
			path += "?status=" + strings.ToUpper(status)
		}

		var batches []domain.BatchStatus
		if err := call(http.MethodGet, path, nil, &batches); err != nil {
			fail(err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPROGRESS\tCREATED")
		for _, b := range batches {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				truncate(string(b.BatchID), 8),
				truncate(b.Title, 30),
				b.Status,
				progress(b),
				humanize.Time(time.UnixMilli(b.CreatedAtMillis)))
		}
		w.Flush()
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get batch details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var b domain.BatchStatus
		if err := call(http.MethodGet, "/api/v1/batches/"+args[0], nil, &b); err != nil {
			fail(err)
		}

		fmt.Printf("Batch Details:\n")
		fmt.Printf("  ID:       %s\n", b.BatchID)
		fmt.Printf("  Title:    %s\n", b.Title)
		fmt.Printf("  Status:   %s\n", b.Status)
		fmt.Printf("  Progress: %s\n", progress(b))
		fmt.Printf("  Created:  %s\n", humanize.Time(time.UnixMilli(b.CreatedAtMillis)))
		if b.ErrorKind != "" {
			fmt.Printf("  Error:    %s\n", b.ErrorKind)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\n  FILE\tSTATUS\tSIZE\tPATH")
		for _, f := range b.Files {
			size := "unknown"
			if f.TotalSize > 0 {
				size = fmt.Sprintf("%s / %s", humanize.Bytes(uint64(f.BytesDownloaded)), humanize.Bytes(uint64(f.TotalSize)))
			}
			status := string(f.Status)
			if f.ErrorKind != "" {
				status += " (" + string(f.ErrorKind) + ")"
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", truncate(string(f.FileID), 8), status, size, f.FilePath)
		}
		w.Flush()
	},
}

func batchCommand(use, short, method, suffix, done string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [id]",
		Short: short,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ensureServer()
			if err := call(method, "/api/v1/batches/"+args[0]+suffix, nil, nil); err != nil {
				fail(err)
			}
			fmt.Println(done)
		},
	}
}

var (
	pauseCmd  = batchCommand("pause", "Pause a batch", http.MethodPost, "/pause", "Batch paused")
	resumeCmd = batchCommand("resume", "Resume a paused or failed batch", http.MethodPost, "/resume", "Batch resumed")
	deleteCmd = batchCommand("delete", "Delete a batch and its downloaded data", http.MethodDelete, "", "Batch deletion started")
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show batch statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()

		var stats domain.DownloadStats
		if err := call(http.MethodGet, "/api/v1/batches/stats", nil, &stats); err != nil {
			fail(err)
		}

		fmt.Println("Batch Statistics:")
		fmt.Printf("  Total:       %d\n", stats.Total)
		fmt.Printf("  Queued:      %d\n", stats.Queued)
		fmt.Printf("  Downloading: %d\n", stats.Downloading)
		fmt.Printf("  Paused:      %d\n", stats.Paused)
		fmt.Printf("  Downloaded:  %d\n", stats.Downloaded)
		fmt.Printf("  Failed:      %d\n", stats.Failed)
		fmt.Printf("  Deleting:    %d\n", stats.Deletion)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Import batches from the legacy database",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		statusOnly, _ := cmd.Flags().GetBool("status")

		method := http.MethodPost
		if statusOnly {
			method = http.MethodGet
		}

		var status domain.MigrationStatus
		if err := call(method, "/api/v1/migration", nil, &status); err != nil {
			fail(err)
		}
		fmt.Printf("Migration: %s (%d%%)\n", status.Status, status.PercentageMigrated)
		if status.ErrorKind != "" {
			fmt.Printf("Error:     %s\n", status.ErrorKind)
		}
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs [category]",
	Short: "View categorized logs (batch, migration, error)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		limit, _ := cmd.Flags().GetInt("limit")
		query, _ := cmd.Flags().GetString("search")

		path := fmt.Sprintf("/api/v1/logs/%s?limit=%d", args[0], limit)
		if query != "" {
			path = fmt.Sprintf("/api/v1/logs/%s/search?limit=%d&q=%s", args[0], limit, url.QueryEscape(query))
		}

		var result struct {
			Entries []struct {
				Timestamp string                 `json:"timestamp"`
				Level     string                 `json:"level"`
				Message   string                 `json:"message"`
				Fields    map[string]interface{} `json:"fields"`
			} `json:"entries"`
		}
		if err := call(http.MethodGet, path, nil, &result); err != nil {
			fail(err)
		}

		for _, e := range result.Entries {
			fields, _ := json.Marshal(e.Fields)
			fmt.Printf("%s %-5s %s %s\n", e.Timestamp, strings.ToUpper(e.Level), e.Message, fields)
		}
	},
}

func init() {
	submitCmd.Flags().StringP("title", "t", "", "Batch title (default: name of the first file)")
	submitCmd.Flags().String("id", "", "Batch identifier (default: generated)")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	migrateCmd.Flags().Bool("status", false, "Only show the migration status")
	logsCmd.Flags().IntP("limit", "n", 50, "Number of entries")
	logsCmd.Flags().StringP("search", "q", "", "Only show entries containing this text")
}

func progress(b domain.BatchStatus) string {
	if b.BytesTotalSize == 0 {
		return "-"
	}
	return fmt.Sprintf("%d%% of %s", b.PercentageDownloaded, humanize.Bytes(uint64(b.BytesTotalSize)))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
