package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"bingart"
)

var (
	workerCount  int
	proxiesFile  string
	staggerDelay time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] <prompts-file>",
	Short: "Generate every prompt of a file, one per line, on a worker pool",
	Example: `  bingart batch -w 4 prompts.txt
  bingart batch -w 8 --proxies proxies.txt -o out prompts.txt`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompts, err := readPrompts(args[0])
		if err != nil {
			return err
		}
		engineLog.Printf("Loaded %d prompts", len(prompts))

		var proxies *bingart.ProxyManager
		if proxiesFile != "" {
			proxies, err = bingart.LoadProxies(proxiesFile)
			if err != nil {
				return err
			}
			engineLog.Printf("Loaded %d proxies", proxies.Count())
		}

		batch, err := bingart.NewBatch(bingart.BatchConfig{
			Workers:      workerCount,
			Proxies:      proxies,
			NewClient:    bingart.ClientFactoryFromOptions(clientOptions()),
			Logger:       &moduleLogger{logger: modLog},
			StaggerDelay: staggerDelay,
			JobTimeout:   timeout,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runBatch(ctx, batch, prompts)
	},
}

func init() {
	batchCmd.Flags().IntVarP(&workerCount, "workers", "w", 2, "number of concurrent sessions")
	batchCmd.Flags().StringVar(&proxiesFile, "proxies", "", "proxy list file, one proxy per line")
	batchCmd.Flags().DurationVar(&staggerDelay, "stagger", 500*time.Millisecond, "delay between worker start-ups")
}

func readPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open prompts file: %w", err)
	}
	defer f.Close()

	var prompts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading prompts file: %w", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("no prompts found in %s", path)
	}
	return prompts, nil
}

func runBatch(ctx context.Context, batch *bingart.Batch, prompts []string) error {
	engineLog.Printf("Starting %d workers...", batch.WorkerCount())
	batch.Start(ctx)

	go func() {
		defer batch.Close()
		for _, prompt := range prompts {
			req, err := generationRequest(prompt)
			if err != nil {
				engineLog.Printf("Skipping %q: %v", prompt, err)
				continue
			}
			if _, err := batch.Submit(req); err != nil {
				engineLog.Printf("Stopped submitting: %v", err)
				return
			}
		}
	}()

	bar := pb.New(len(prompts)).SetWriter(os.Stderr).Start()

	var (
		rows     []summaryRow
		fatalErr error
		failures int
	)
	downloader := bingart.NewDownloader(&moduleLogger{logger: modLog})

	for result := range batch.Results() {
		if result.Fatal {
			fatalErr = result.Error
			engineLog.Printf("FATAL ERROR: %v", result.Error)
			continue
		}
		bar.Increment()

		row := summaryRow{prompt: result.Job.Request.Prompt, worker: result.WorkerID}
		switch {
		case result.Error != nil:
			failures++
			row.err = result.Error
		default:
			row.result = result.Result
			if outDir != "" {
				files, err := downloader.Save(ctx, result.Result, outDir)
				if err != nil {
					engineLog.Printf("Download failed: %v", err)
				}
				row.files = files
			}
		}
		rows = append(rows, row)
	}
	bar.Finish()

	renderSummary(os.Stdout, rows)

	if fatalErr == nil {
		fatalErr = batch.Err()
	}
	if fatalErr != nil {
		engineLog.Printf("=== ABORTED: %d/%d prompts done (fatal error: %v) ===", len(rows)-failures, len(prompts), fatalErr)
		return fatalErr
	}
	engineLog.Printf("=== Complete: %d succeeded, %d failed ===", len(rows)-failures, failures)
	if failures > 0 {
		return fmt.Errorf("%d prompts failed", failures)
	}
	if len(rows) < len(prompts) {
		return fmt.Errorf("batch stopped after %d of %d prompts", len(rows), len(prompts))
	}
	return nil
}
