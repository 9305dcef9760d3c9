package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"bingart"
)

var (
	authCookie   string
	autoCookie   bool
	browsers     string
	cookieDir    string
	proxyURL     string
	modelName    string
	aspectName   string
	video        bool
	outDir       string
	timeout      time.Duration
	checkBalance bool
	logFile      string
	quiet        bool

	engineLog *log.Logger
	modLog    *log.Logger
	logSink   *os.File
)

// moduleLogger indents library output under the CLI's own lines.
type moduleLogger struct {
	logger *log.Logger
}

func (m *moduleLogger) Log(format string, args ...any) {
	m.logger.Printf("      "+format, args...)
}

var rootCmd = &cobra.Command{
	Use:   "bingart",
	Short: "Generate images and videos with Bing Image Creator",
	Long: `bingart drives the Bing Image Creator web UI with a browser-like session.

The _U auth cookie is read from --cookie, the BING_U environment variable
(.env is loaded), or discovered from browser cookie exports with --auto.

Environment Variables:
  BING_U              _U auth cookie
  BING_KIEV           KievRPSSecAuth cookie (optional)
  BING_PROXY          Proxy URL
  BINGART_COOKIE_DIR  Directory with <browser>.json / <browser>.txt cookie exports`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return setupLogging()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logSink != nil {
			logSink.Close()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&authCookie, "cookie", "", "_U auth cookie (default $BING_U)")
	flags.BoolVar(&autoCookie, "auto", false, "discover the auth cookie from browser cookie exports")
	flags.StringVar(&browsers, "browsers", strings.Join(bingart.KnownBrowsers, ","), "browsers to search with --auto, in order")
	flags.StringVar(&cookieDir, "cookie-dir", "", "directory of browser cookie exports (default $BINGART_COOKIE_DIR or ./cookies)")
	flags.StringVar(&proxyURL, "proxy", "", "proxy URL (default $BING_PROXY)")
	flags.StringVarP(&modelName, "model", "m", "dalle", "model: dalle, gpt4o or mai1")
	flags.StringVarP(&aspectName, "aspect", "a", "square", "aspect: square, landscape or portrait")
	flags.BoolVar(&video, "video", false, "generate a video instead of images")
	flags.StringVarP(&outDir, "out", "o", "", "download results into this directory")
	flags.DurationVar(&timeout, "timeout", 5*time.Minute, "give up on a prompt after this long (0 waits forever)")
	flags.BoolVar(&checkBalance, "check-balance", false, "use the slow lane when no boosts are left")
	flags.StringVar(&logFile, "log-file", "bingart.log", "append logs to this file (empty disables)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only log to the log file")

	rootCmd.AddCommand(generateCmd, batchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() error {
	var writers []io.Writer
	if !quiet {
		writers = append(writers, os.Stdout)
	}
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logSink = f
		writers = append(writers, f)
	}

	out := io.MultiWriter(writers...)
	engineLog = log.New(out, "", log.LstdFlags)
	modLog = log.New(out, "", log.LstdFlags)
	return nil
}

// clientOptions builds library options from flags and environment.
func clientOptions() bingart.Options {
	opts := bingart.Options{
		AuthCookie:          authCookie,
		SecondaryAuthCookie: bingart.GetSecondaryAuthCookie(),
		AutoCookie:          autoCookie,
		Proxy:               proxyURL,
		CheckBalance:        checkBalance,
		Logger:              &moduleLogger{logger: modLog},
	}
	if opts.AuthCookie == "" && !autoCookie {
		opts.AuthCookie = bingart.GetAuthCookie()
	}
	if opts.Proxy == "" {
		opts.Proxy = bingart.GetProxy()
	}
	if browsers != "" {
		opts.Browsers = strings.Split(browsers, ",")
	}
	if cookieDir != "" {
		opts.CookieSource = bingart.DefaultCookieSource(cookieDir)
	}
	return opts
}

// generationRequest builds the request for prompt from flags.
func generationRequest(prompt string) (bingart.GenerationRequest, error) {
	model, err := bingart.ParseModel(modelName)
	if err != nil {
		return bingart.GenerationRequest{}, err
	}
	aspect, err := bingart.ParseAspect(aspectName)
	if err != nil {
		return bingart.GenerationRequest{}, err
	}
	kind := bingart.KindImage
	if video {
		kind = bingart.KindVideo
	}
	return bingart.GenerationRequest{Prompt: prompt, Model: model, Aspect: aspect, Kind: kind}, nil
}
