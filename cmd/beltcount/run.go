package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ayusman/beltcount/internal/app"
	"github.com/ayusman/beltcount/internal/config"
	"github.com/ayusman/beltcount/internal/live"
	"github.com/ayusman/beltcount/internal/logging"
	"github.com/ayusman/beltcount/internal/metrics"
	"github.com/ayusman/beltcount/internal/server"
	"github.com/ayusman/beltcount/internal/store"
	"github.com/ayusman/beltcount/internal/tray"
)

// loadSettings reads the config file, if any, and applies flag overrides.
func loadSettings(c *cli.Context) (*config.Config, error) {
	settings := config.Default()
	if path := c.String(flagConfig); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		settings = *loaded
	}

	if c.IsSet(flagInput) {
		settings.Input = c.String(flagInput)
	}
	if c.IsSet(flagOutput) {
		settings.Output = c.String(flagOutput)
	}
	if c.IsSet(flagLog) {
		settings.LogFile = c.String(flagLog)
	}
	if c.IsSet(flagDB) {
		settings.DBPath = c.String(flagDB)
	}
	if c.IsSet(flagPolicy) {
		settings.Counting.Policy = c.String(flagPolicy)
	}
	if c.IsSet(flagLineY) {
		settings.Counting.LineY = c.Int(flagLineY)
	}
	if c.IsSet(flagDisplay) {
		settings.Display = c.Bool(flagDisplay)
	}
	if c.IsSet(flagHTTP) {
		settings.HTTPAddr = c.String(flagHTTP)
	}
	if c.IsSet(flagLogLevel) {
		settings.LogLevel = c.String(flagLogLevel)
	}

	if err := config.Validate(&settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &settings, nil
}

func runAction(c *cli.Context) error {
	settings, err := loadSettings(c)
	if err != nil {
		return err
	}

	logger, err := logging.New("beltcount", settings.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var st *store.Store
	if settings.DBPath != "" {
		st, err = store.New(settings.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	hub := live.NewHub()
	defer hub.Close()
	exporter := metrics.NewExporter()

	var wg sync.WaitGroup
	if settings.HTTPAddr != "" {
		srv := server.New(server.Config{
			StaticDir: c.String(flagStatic),
			Store:     st,
			Hub:       hub,
			Exporter:  exporter,
			Logger:    logger.Named("http"),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Infof("Live view on http://%s", displayAddr(settings.HTTPAddr))
			if err := srv.Serve(ctx, settings.HTTPAddr); err != nil {
				logger.Errorw("HTTP server failed", "error", err)
			}
		}()
	}

	application := app.New(app.Config{
		Settings: *settings,
		Store:    st,
		Hub:      hub,
		Exporter: exporter,
		Logger:   logger.Named("pipeline"),
	})

	var summary *app.Summary
	if c.Bool(flagTray) {
		summary, err = runWithTray(ctx, stop, application, settings, logger)
	} else {
		summary, err = application.Run(ctx)
	}

	// The run is over; stop the server too.
	stop()
	wg.Wait()

	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}

// runWithTray runs the pipeline in the background while the tray owns the
// main goroutine, which systray requires on some platforms.
func runWithTray(ctx context.Context, cancel context.CancelFunc, application *app.App, settings *config.Config, logger *zap.SugaredLogger) (*app.Summary, error) {
	tr := tray.New(settings.Input)
	tr.OnQuit(cancel)
	if settings.HTTPAddr != "" {
		url := "http://" + displayAddr(settings.HTTPAddr)
		tr.OnOpen(func() {
			if err := openBrowser(url); err != nil {
				logger.Warnf("Failed to open browser: %v", err)
			}
		})
	}
	application.OnCount(tr.SetCount)

	var (
		summary *app.Summary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-tr.Ready()
		summary, runErr = application.Run(ctx)
		tr.Quit()
	}()

	tr.Run()
	cancel()
	<-done

	return summary, runErr
}

func printSummary(s *app.Summary) {
	how := "end of stream"
	if s.Stopped {
		how = "stopped"
	}
	fmt.Printf("Counted %s objects in %s frames (%s, %s)\n",
		humanize.Comma(int64(s.Count)), humanize.Comma(int64(s.Frames)), how, s.Duration.Round(time.Millisecond))
	if s.RunID != "" {
		fmt.Printf("Run ID: %s\n", s.RunID)
	}
}

// displayAddr turns a listen address like ":8080" into a browsable host.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return errors.New("unsupported platform " + runtime.GOOS)
	}
	return cmd.Start()
}
