package cmd

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stratus-eo/stratus/client"
	"github.com/stratus-eo/stratus/download"
)

var (
	outputPath  string
	outputDir   string
	concurrency int
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download URL...",
	Short: "Download one or more assets",
	Long: `Stream assets to disk. A single URL can be written to an explicit
output path; multiple URLs are downloaded concurrently into the
download directory, named after the last URL path segment.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&outputPath, "output", "o", "", "destination file (single URL only)")
	downloadCmd.Flags().StringVar(&outputDir, "dir", "", "destination directory (default from config)")
	downloadCmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel downloads (default from config)")
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	defer session.Close()

	if outputPath != "" && len(args) > 1 {
		return fmt.Errorf("--output is only valid with a single URL")
	}

	dir := outputDir
	if dir == "" {
		dir = cfg.Download.Directory
	}

	items := make([]download.Item, 0, len(args))
	for _, rawURL := range args {
		dest := outputPath
		if dest == "" {
			name, err := assetName(rawURL)
			if err != nil {
				return err
			}
			dest = filepath.Join(dir, name)
		}
		items = append(items, download.Item{URL: rawURL, Dest: dest})
	}

	ctx := context.Background()

	if len(items) == 1 {
		return downloadOne(ctx, items[0])
	}

	workers := concurrency
	if workers == 0 {
		workers = cfg.Download.Concurrency
	}

	result := download.All(ctx, session, items, workers, logger)

	fmt.Printf("\n✓ Downloaded %d of %d assets\n", len(result.Completed), result.Requested)
	for _, fail := range result.Failed {
		fmt.Printf("✗ %s: %v\n", fail.URL, fail.Err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d downloads failed", len(result.Failed))
	}
	return nil
}

func downloadOne(ctx context.Context, item download.Item) error {
	stream := session.Stream(client.NewRequest(http.MethodGet, item.URL))
	resp, err := stream.Open(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	progress := download.LogProgress(logger, filepath.Base(item.Dest))
	written, err := download.WriteResponse(ctx, resp, item.Dest, download.WithProgress(progress))
	if err != nil {
		return err
	}

	fmt.Printf("✓ Downloaded %s (%d bytes)\n", item.Dest, written)
	return nil
}

// assetName derives a destination file name from the URL path.
func assetName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("cannot derive a file name from %q, use --output", rawURL)
	}
	return name, nil
}
