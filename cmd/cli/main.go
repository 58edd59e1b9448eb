package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "media-proxy",
		Short: "Media Proxy CLI - download media through a Media Proxy server",
		Long:  `A command-line client for the Media Proxy server: fetch media, preview metadata and inspect download history.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:5000", "Server URL")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(formatsCmd)
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

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// mediaPayload builds the JSON body shared by download and info
func mediaPayload(cmd *cobra.Command, link string) []byte {
	format, _ := cmd.Flags().GetString("format")
	quality, _ := cmd.Flags().GetString("quality")

	payload := map[string]string{"url": link}
	if format != "" {
		payload["format"] = format
	}
	if quality != "" {
		payload["quality"] = quality
	}
	data, _ := json.Marshal(payload)
	return data
}

// errorMessage extracts the server's message field from an error body
func errorMessage(body []byte) string {
	var result struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &result); err == nil && result.Message != "" {
		return result.Message
	}
	return string(body)
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Download media and save it locally",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		outputDir, _ := cmd.Flags().GetString("output")

		resp, err := http.Post(serverURL+"/api/stream-download", "application/json",
			bytes.NewBuffer(mediaPayload(cmd, args[0])))
		if err != nil {
			fail("%v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			fail("%s", errorMessage(body))
		}

		filename := attachmentName(resp.Header.Get("Content-Disposition"))
		path := filepath.Join(outputDir, filename)
		file, err := os.Create(path)
		if err != nil {
			fail("%v", err)
		}
		defer file.Close()

		n, err := io.Copy(file, resp.Body)
		if err != nil {
			os.Remove(path)
			fail("download interrupted: %v", err)
		}

		fmt.Printf("Download completed successfully!\n")
		fmt.Printf("File: %s\n", path)
		fmt.Printf("Size: %d bytes\n", n)
	},
}

// attachmentName returns the filename from a Content-Disposition header,
// falling back to "download"
func attachmentName(disposition string) string {
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return "download"
	}
	return filepath.Base(params["filename"])
}

var infoCmd = &cobra.Command{
	Use:   "info [url]",
	Short: "Show media metadata without downloading",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Post(serverURL+"/api/media-info", "application/json",
			bytes.NewBuffer(mediaPayload(cmd, args[0])))
		if err != nil {
			fail("%v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var info map[string]interface{}
		json.Unmarshal(body, &info)
		if info["success"] != true {
			fail("%s", errorMessage(body))
		}

		fmt.Println("Media Information:")
		fmt.Printf("  Title:    %v\n", info["title"])
		fmt.Printf("  Duration: %v\n", info["duration"])
		fmt.Printf("  Size:     %v\n", info["filesize"])
		fmt.Printf("  Uploader: %v\n", info["uploader"])
		fmt.Printf("  Platform: %v\n", info["platform"])
		if views, ok := info["view_count"].(float64); ok {
			fmt.Printf("  Views:    %.0f\n", views)
		}
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all files from the server's downloads directory",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Post(serverURL+"/api/cleanup", "application/json", nil)
		if err != nil {
			fail("%v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		fmt.Println(errorMessage(body))
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent downloads",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		status, _ := cmd.Flags().GetString("status")
		format, _ := cmd.Flags().GetString("format")
		limit, _ := cmd.Flags().GetInt("limit")

		query := url.Values{}
		if status != "" {
			query.Set("status", status)
		}
		if format != "" {
			query.Set("format", format)
		}
		if limit > 0 {
			query.Set("limit", strconv.Itoa(limit))
		}

		resp, err := http.Get(serverURL + "/api/downloads?" + query.Encode())
		if err != nil {
			fail("%v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			fail("%s", errorMessage(body))
		}

		var result struct {
			Enabled   bool                     `json:"enabled"`
			Downloads []map[string]interface{} `json:"downloads"`
		}
		json.Unmarshal(body, &result)
		if !result.Enabled {
			fmt.Println("Download history is disabled on this server")
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tFORMAT\tSTATUS\tFILE\tCREATED")
		for _, d := range result.Downloads {
			fmt.Fprintf(w, "%s\t%s\t%v\t%v\t%s\t%v\n",
				truncate(stringField(d, "id"), 8),
				truncate(stringField(d, "url"), 40),
				d["kind"],
				d["status"],
				truncate(stringField(d, "filename"), 30),
				d["created_at"])
		}
		w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Get(serverURL + "/api/downloads/stats")
		if err != nil {
			fail("%v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var stats map[string]interface{}
		json.Unmarshal(body, &stats)

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %v\n", stats["total"])
		fmt.Printf("  Completed:  %v\n", stats["completed"])
		fmt.Printf("  Failed:     %v\n", stats["failed"])
		fmt.Printf("  Bytes:      %v\n", stats["total_bytes"])
		if byError, ok := stats["by_error"].(map[string]interface{}); ok && len(byError) > 0 {
			fmt.Println("  Failures by kind:")
			for kind, count := range byError {
				fmt.Printf("    %-18s %v\n", kind, count)
			}
		}
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := http.Get(serverURL + "/health")
		if err != nil {
			fail("server unreachable: %v", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var out bytes.Buffer
		if err := json.Indent(&out, body, "", "  "); err != nil {
			fmt.Println(string(body))
			return
		}
		fmt.Println(out.String())
	},
}

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported output formats and platforms",
	Run: func(cmd *cobra.Command, args []string) {
		ensureServer()
		resp, err := http.Get(serverURL + "/api/formats")
		if err != nil {
			fail("%v", err)
		}
		defer resp.Body.Close()

		var result struct {
			Formats []struct {
				Name           string   `json:"name"`
				Description    string   `json:"description"`
				QualityOptions []string `json:"quality_options"`
			} `json:"formats"`
		}
		json.NewDecoder(resp.Body).Decode(&result)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FORMAT\tDESCRIPTION\tQUALITY")
		for _, f := range result.Formats {
			fmt.Fprintf(w, "%s\t%s\t%v\n", f.Name, f.Description, f.QualityOptions)
		}
		w.Flush()
	},
}

func init() {
	for _, cmd := range []*cobra.Command{downloadCmd, infoCmd} {
		cmd.Flags().StringP("format", "f", "mp4", "Output format (mp4, mp3, webm, wav)")
		cmd.Flags().StringP("quality", "q", "", "Quality (best, 720p, 320, ...)")
	}
	downloadCmd.Flags().StringP("output", "o", ".", "Directory to save the file in")
	historyCmd.Flags().StringP("status", "s", "", "Filter by status (completed, failed)")
	historyCmd.Flags().StringP("format", "f", "", "Filter by format")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries")
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
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
