// zorkduino plays Z-machine stories from a memory file backed by a disk
// image, the way the board plays them from an SD card.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	zmachine "github.com/rossumur/Zorkduino"
)

var (
	configPath     = flag.String("config", "", "TOML configuration file")
	memPath        = flag.String("mem", "", "memory file holding the stack, story and save slots (overrides storage.memory_file)")
	logLevel       = flag.String("log-level", "", "debug, info, warn or error (overrides log.level)")
	transcriptPath = flag.String("transcript", "", "file receiving the transcript when the story turns scripting on")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "zorkduino - Z-machine for versions 1 to 5 and 8\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  zorkduino [options] story.z5\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		var zerr *zmachine.Error
		if errors.As(err, &zerr) {
			fmt.Fprintf(os.Stderr, "Fatal:%d %v\n", int(zerr.Code), zerr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(storyPath string) error {
	cfg, err := zmachine.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *memPath != "" {
		cfg.Storage.MemoryFile = *memPath
	}

	logOut := io.Writer(os.Stderr)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger, _, err := zmachine.NewLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}

	story, err := os.ReadFile(storyPath)
	if err != nil {
		return fmt.Errorf("cannot read story: %w", err)
	}

	dev, err := zmachine.OpenFileDevice(cfg.Storage.MemoryFile)
	if err != nil {
		return err
	}
	defer dev.Close()

	opts := cfg.Options()
	opts.Logger = logger
	if *transcriptPath != "" {
		f, err := os.Create(*transcriptPath)
		if err != nil {
			return fmt.Errorf("cannot create transcript: %w", err)
		}
		defer f.Close()
		opts.Transcript = f
	}

	t, err := openTerminal(cfg.Screen.Rows, cfg.Screen.Cols)
	if err != nil {
		return err
	}
	opts.Display = t.grid
	opts.Keyboard = t

	zm, err := zmachine.Load(dev, story, opts)
	if err != nil {
		t.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := zm.Run(ctx)
	closeErr := zm.Close()
	if err := t.Close(); err != nil {
		logger.Warn("restore terminal", "error", err)
	}
	if err := dev.Sync(); err != nil && closeErr == nil {
		closeErr = fmt.Errorf("sync memory file: %w", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return closeErr
}
