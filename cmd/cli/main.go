package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wavezboy/social.downloader/internal/app"
	"github.com/wavezboy/social.downloader/internal/domain"
	"github.com/wavezboy/social.downloader/pkg/logger"
)

var (
	serverURL  string
	configPath string
	verbose    bool
	rootCmd    = &cobra.Command{
		Use:   "social-downloader",
		Short: "Resolve and download media from Instagram, TikTok, X/Twitter and Facebook posts",
		Long: `A command-line interface for resolving social media post URLs to direct media URLs.

resolve and download run in-process; add, list, get, stats, cancel and delete
talk to a running social-downloader server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log resolution steps to stderr")

	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	resolveCmd.Flags().StringP("user", "u", "", "User ID the resolution is made for")
	resolveCmd.Flags().Bool("json", false, "Print the result as JSON")
	downloadCmd.Flags().StringP("user", "u", "", "User ID the download is made for")
	addCmd.Flags().StringP("user", "u", "", "User ID the download is made for")
	listCmd.Flags().StringP("status", "s", "", "Filter by status")
	listCmd.Flags().StringP("platform", "p", "", "Filter by platform")
	listCmd.Flags().StringP("user", "u", "", "Filter by user ID")
}

// setupLocal loads configuration and wires the application for in-process commands
func setupLocal(ctx context.Context) (*app.Services, *zap.Logger, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := "error"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: "console", OutputPath: "stderr"})
	if err != nil {
		return nil, nil, err
	}

	services, err := app.NewServices(ctx, config, log, nil)
	if err != nil {
		return nil, nil, err
	}
	return services, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [url]",
	Short: "Resolve a post URL to its direct media URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		services, log, err := setupLocal(ctx)
		if err != nil {
			return err
		}
		defer services.Close()
		defer log.Sync()

		userID, _ := cmd.Flags().GetString("user")
		asJSON, _ := cmd.Flags().GetBool("json")

		result, err := services.Orchestrator.Resolve(ctx, args[0], userID)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(result)
		}
		fmt.Printf("Platform:  %s\n", result.Platform)
		fmt.Printf("Media URL: %s\n", result.MediaURL)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Resolve a post URL and store its media locally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		services, log, err := setupLocal(ctx)
		if err != nil {
			return err
		}
		defer services.Close()
		defer log.Sync()

		userID, _ := cmd.Flags().GetString("user")

		download, err := services.DownloadMgr.Download(ctx, args[0], userID)
		if err != nil {
			return err
		}

		fmt.Printf("Download completed!\n")
		fmt.Printf("ID:        %s\n", download.ID)
		fmt.Printf("Platform:  %s\n", download.Platform)
		fmt.Printf("Media URL: %s\n", download.MediaURL)
		fmt.Printf("File:      %s\n", download.FilePath)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [url]",
	Short: "Add a download to the server queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")

		var download domain.Download
		if err := newAPIClient(serverURL).post("/api/v1/downloads", map[string]string{
			"url":     args[0],
			"user_id": userID,
		}, &download); err != nil {
			return err
		}

		fmt.Printf("Download added successfully!\n")
		fmt.Printf("ID:       %s\n", download.ID)
		fmt.Printf("Platform: %s\n", download.Platform)
		fmt.Printf("Status:   %s\n", download.Status)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		for flag, param := range map[string]string{"status": "status", "platform": "platform", "user": "user_id"} {
			if value, _ := cmd.Flags().GetString(flag); value != "" {
				query.Set(param, value)
			}
		}

		path := "/api/v1/downloads"
		if len(query) > 0 {
			path += "?" + query.Encode()
		}

		var downloads []downloadView
		if err := newAPIClient(serverURL).get(path, &downloads); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tPLATFORM\tSTATUS\tUSER\tCREATED")
		for _, d := range downloads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(d.ID, 8),
				truncate(d.URL, 40),
				d.Platform,
				d.Status,
				d.UserID,
				d.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		var stats domain.DownloadStats
		if err := newAPIClient(serverURL).get("/api/v1/downloads/stats", &stats); err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Queued:     %d\n", stats.Queued)
		fmt.Printf("  Processing: %d\n", stats.Processing)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Cancelled:  %d\n", stats.Cancelled)
		if len(stats.ByPlatform) > 0 {
			fmt.Println("  By platform:")
			for _, platform := range domain.SupportedPlatforms() {
				fmt.Printf("    %-10s %d\n", platform, stats.ByPlatform[platform])
			}
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get download details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var d downloadView
		if err := newAPIClient(serverURL).get("/api/v1/downloads/"+url.PathEscape(args[0]), &d); err != nil {
			return err
		}

		fmt.Printf("Download Details:\n")
		fmt.Printf("  ID:       %s\n", d.ID)
		fmt.Printf("  URL:      %s\n", d.URL)
		fmt.Printf("  Platform: %s\n", d.Platform)
		fmt.Printf("  Status:   %s\n", d.Status)
		fmt.Printf("  User:     %s\n", d.UserID)
		fmt.Printf("  Created:  %s\n", d.CreatedAt.Format("2006-01-02 15:04:05"))
		if d.MediaURL != "" {
			fmt.Printf("  Media:    %s\n", d.MediaURL)
		}
		if d.FileURL != "" {
			fmt.Printf("  File:     %s%s\n", serverURL, d.FileURL)
		}
		if d.ErrorMessage != "" {
			fmt.Printf("  Error:    %s (%s)\n", d.ErrorMessage, d.ErrorKind)
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(serverURL).post("/api/v1/downloads/"+url.PathEscape(args[0])+"/cancel", nil, nil); err != nil {
			return err
		}
		fmt.Println("Download cancelled successfully")
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a finished download record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPIClient(serverURL).delete("/api/v1/downloads/" + url.PathEscape(args[0])); err != nil {
			return err
		}
		fmt.Println("Download deleted")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the effective configuration to a YAML file",
	Long: `Write the effective configuration (defaults, the --config file and
SOCIALDL_* environment overrides) to a YAML file. Credentials and the cache
password are left out; supply them through the environment.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "configs/config.yaml"
		if len(args) == 1 {
			path = args[0]
		}

		config, err := app.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := app.SaveConfig(config, path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
