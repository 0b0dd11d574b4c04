package malaya

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tailscale/hujson"
)

// manifestFile is the on-disk description of a logical model, in JWCC
// (JSON with comments and trailing commas).
type manifestFile struct {
	// Version is the expected version tag.
	Version string `json:"version"`

	// Files maps logical keys to local paths. Relative paths are resolved
	// against the cache root.
	Files map[string]string `json:"files"`

	// Remote maps the same keys to remote locators.
	Remote map[string]string `json:"remote"`
}

// loadManifestFile reads and parses a JWCC manifest file.
func loadManifestFile(path string) (*manifestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}

	var mf manifestFile
	if err := json.Unmarshal(standardized, &mf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidManifest, path, err)
	}

	if mf.Version == "" {
		return nil, fmt.Errorf("%w: %s: missing %q entry", ErrInvalidManifest, path, "version")
	}
	if mf.Files["model"] == "" {
		return nil, fmt.Errorf("%w: %s: missing files entry %q", ErrInvalidManifest, path, "model")
	}

	return &mf, nil
}

// resolve builds the Manifest and RemoteMap, joining relative file paths to
// the cache root.
func (mf *manifestFile) resolve(root string) (Manifest, RemoteMap) {
	man := make(Manifest, len(mf.Files)+1)
	for key, path := range mf.Files {
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		man[key] = path
	}
	man["version"] = mf.Version

	remote := make(RemoteMap, len(mf.Remote))
	for key, locator := range mf.Remote {
		remote[key] = locator
	}
	return man, remote
}

// NewCommand creates a Cobra command tree for cache management.
// The returned command should be added to a parent CLI's root command.
//
// Commands provided:
//   - assets verify -f <manifest>
//   - assets ensure -f <manifest> [--force]
//   - assets clear <subdir> | --all
//   - assets tree [path]
//   - assets path
//
// Global flags: --quiet
func NewCommand(cfg Config, opts ...ManagerOption) *cobra.Command {
	var quiet bool

	// Manager will be created in PersistentPreRunE
	var mgr Manager

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage cached model assets",
		Long:  "Download, verify, and manage pretrained model files cached from the remote blob store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip manager creation for help commands
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			var err error
			mgr, err = NewManager(cfg, opts...)
			if err != nil {
				return fmt.Errorf("failed to initialize manager: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")

	cmd.AddCommand(verifyCmd(&mgr, &quiet))
	cmd.AddCommand(ensureCmd(&mgr, &quiet))
	cmd.AddCommand(clearCmd(&mgr, &quiet))
	cmd.AddCommand(treeCmd(&mgr))
	cmd.AddCommand(pathCmd(&mgr))

	return cmd
}

func verifyCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a model's files are present",
		Long:  "Check the local cache against a manifest without downloading anything. Fails if any file is missing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mf, err := loadManifestFile(manifestPath)
			if err != nil {
				return err
			}
			man, _ := mf.resolve((*mgr).CacheDir())

			if err := (*mgr).Verify(man); err != nil {
				return err
			}

			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is available (version %s)\n", man.Dir(), man.Version())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "f", "", "Path to the manifest file (required)")
	cmd.MarkFlagRequired("manifest")
	return cmd
}

func ensureCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var (
		manifestPath string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "ensure",
		Short: "Download missing or stale model files",
		Long:  "Validate the local cache against a manifest and download whatever the version marker says is missing or stale.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			mf, err := loadManifestFile(manifestPath)
			if err != nil {
				return err
			}
			man, remote := mf.resolve((*mgr).CacheDir())

			var opts []EnsureOption
			if force {
				opts = append(opts, WithForce())
			}

			// Set up per-file progress reporting
			var currentKey string
			if !*quiet {
				var startTime time.Time
				opts = append(opts, WithProgress(func(p Progress) {
					if p.Key != currentKey {
						if currentKey != "" {
							fmt.Fprintln(out)
						}
						currentKey = p.Key
						startTime = time.Now()
						// Hide cursor while the bar redraws in place
						fmt.Fprint(out, "\x1b[?25l")
					}
					renderProgress(out, p.Key, p.BytesCompleted, p.BytesTotal, startTime)
				}))
			}

			err = (*mgr).Ensure(ctx, man, remote, opts...)
			if currentKey != "" {
				fmt.Fprint(out, "\x1b[?25h\n") // Show cursor and new line
			}
			if err != nil {
				return err
			}

			if !*quiet {
				fmt.Fprintf(out, "%s is up to date (version %s)\n", man.Dir(), man.Version())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "f", "", "Path to the manifest file (required)")
	cmd.Flags().BoolVar(&force, "force", false, "Re-download every file even if the version marker matches")
	cmd.MarkFlagRequired("manifest")
	return cmd
}

func clearCmd(mgr *Manager, quiet *bool) *cobra.Command {
	var (
		all bool
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "clear [subdir]",
		Short: "Delete cached model files",
		Long:  "Delete one model subdirectory from the cache, or the entire cache with --all.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				if !yes {
					fmt.Fprintf(cmd.OutOrStdout(), "Clear the entire cache at %s? [y/N]: ", (*mgr).CacheDir())
					if !confirmPrompt(cmd.InOrStdin()) {
						fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
						return nil
					}
				}

				if err := (*mgr).ClearAll(); err != nil {
					return err
				}
				if !*quiet {
					fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared.")
				}
				return nil
			}

			if len(args) == 0 {
				return fmt.Errorf("subdirectory required (or use --all to clear the entire cache)")
			}
			subdir := args[0]

			if !yes {
				fmt.Fprintf(cmd.OutOrStdout(), "Remove cached model %q? [y/N]: ", subdir)
				if !confirmPrompt(cmd.InOrStdin()) {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			if err := (*mgr).ClearCache(subdir); err != nil {
				return err
			}
			if !*quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", subdir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Clear the entire cache root")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func treeCmd(mgr *Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [path]",
		Short: "Print the cache layout as a tree",
		Long:  "Render the cache root (or the given directory) as a tree for diagnostics.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := (*mgr).CacheDir()
			if len(args) == 1 {
				root = args[0]
			}
			return RenderTree(cmd.OutOrStdout(), root)
		},
	}
}

func pathCmd(mgr *Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache root directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), (*mgr).CacheDir())
			return nil
		},
	}
}

// confirmPrompt reads from stdin and returns true only if the user types 'y'
// or 'yes'. Returns false for empty input or any other response.
func confirmPrompt(r io.Reader) bool {
	scanner := bufio.NewScanner(r)
	if scanner.Scan() {
		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return response == "y" || response == "yes"
	}
	return false
}

// renderProgress renders the per-file progress bar to the writer.
// Format: model [============>                 ] 45% (5.2 MB/s, elapsed: 30s, remaining: 2m 15s)
func renderProgress(w io.Writer, key string, current, total int64, startTime time.Time) {
	elapsed := time.Since(startTime)

	var pct float64
	if total > 0 {
		pct = float64(current) / float64(total) * 100
	}

	var speed float64
	if elapsed.Seconds() > 0 && current > 0 {
		speed = float64(current) / elapsed.Seconds()
	}

	var remaining time.Duration
	if speed > 0 && current < total {
		remaining = time.Duration(float64(total-current)/speed) * time.Second
	}

	const barWidth = 30
	filled := int(pct / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	var bar string
	if filled >= barWidth {
		bar = strings.Repeat("=", barWidth)
	} else if filled > 0 {
		bar = strings.Repeat("=", filled) + ">" + strings.Repeat(" ", barWidth-filled-1)
	} else {
		bar = ">" + strings.Repeat(" ", barWidth-1)
	}

	// \r to overwrite, \x1b[K to clear to end of line
	fmt.Fprintf(w, "\r\x1b[K%s [%s] %.0f%% of %s (%s, elapsed: %s, remaining: %s)",
		key, bar, pct, formatSize(total), formatSpeed(speed), formatDuration(elapsed), formatDuration(remaining))
}

// formatSize formats a byte count as B, KB, MB, or GB.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatSpeed formats bytes per second as KB/s or MB/s.
func formatSpeed(bytesPerSec float64) string {
	const (
		KB = 1024
		MB = KB * 1024
	)

	if bytesPerSec >= MB {
		return fmt.Sprintf("%.1f MB/s", bytesPerSec/MB)
	}
	if bytesPerSec >= KB {
		return fmt.Sprintf("%.1f KB/s", bytesPerSec/KB)
	}
	return fmt.Sprintf("%.0f B/s", bytesPerSec)
}

// formatDuration formats a duration as human-readable text (e.g., "5s", "2m 30s", "1h 5m").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)

	hours := int(d.Hours())
	mins := int(d.Minutes()) % 60
	secs := int(d.Seconds()) % 60

	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if mins > 0 {
		if secs > 0 {
			return fmt.Sprintf("%dm %ds", mins, secs)
		}
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%ds", secs)
}
