package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"bingart"
)

var generateCmd = &cobra.Command{
	Use:   "generate [flags] <prompt>",
	Short: "Generate images (or a video) for one prompt",
	Example: `  bingart generate "a lighthouse at dusk"
  bingart generate -m gpt4o -a landscape -o out "a fox in the snow"
  bingart generate --video "waves crashing on rocks"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := generationRequest(strings.Join(args, " "))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		client, err := bingart.New(ctx, clientOptions())
		if err != nil {
			engineLog.Printf("Failed to open session: %v", err)
			return err
		}
		defer client.Close()

		engineLog.Printf("Generating %s with %s (%s)...", req.Kind, req.Model, req.Aspect)
		res, err := client.Generate(ctx, req)
		if err != nil {
			if bingart.IsPromptRejected(err) {
				engineLog.Printf("Prompt rejected: %q", req.Prompt)
			} else {
				engineLog.Printf("Generation failed: %v", err)
			}
			return err
		}

		var files []string
		if outDir != "" {
			files, err = bingart.NewDownloader(&moduleLogger{logger: modLog}).Save(ctx, res, outDir)
			if err != nil {
				engineLog.Printf("Download failed: %v", err)
				return err
			}
		}

		renderResult(os.Stdout, res, files)
		return nil
	},
}
