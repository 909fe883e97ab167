package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/config"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/control"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/elasticlog"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/log"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/report"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/session"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/tail"
	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/watch"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var (
	configFilePath = flag.String("config", "fswatch.toml", "config file path")

	modeFlag = flag.String("mode", "", "watch mode: auto, tree or tail (overrides config)")
	pathFlag = flag.String("path", "", "file or directory to watch (overrides config)")

	verbose = flag.Bool("v", false, "log debug messages")
)

// reporter is implemented by every report sink selectable in the config.
type reporter interface {
	report.TreeReporter
	report.LineReporter
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		slog.Error("exit due to fatal error", "error", err)

		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	if *verbose {
		opts.Level = slog.LevelDebug
	}

	console := slog.New(slog.NewJSONHandler(os.Stderr, opts))

	slog.SetDefault(console)

	cfg, err := config.Parse(*configFilePath)

	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if *modeFlag != "" {
		cfg.Watch.Mode = *modeFlag
	}

	switch {
	case *pathFlag != "":
		cfg.Watch.Path = *pathFlag
	case flag.NArg() > 0:
		cfg.Watch.Path = flag.Arg(0)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return err
	}

	console.Debug("loaded config file", slog.String("path", *configFilePath), slog.Any("config", cfg))

	eg, ctx := errgroup.WithContext(ctx)

	if cfg.ElasticSearch.Enabled {
		switch bw, err := createBulkWriter(cfg); {
		case err != nil:
			console.Warn("cannot connect to ElasticSearch; printing log messages to local console only", "error", err)
		default:
			slog.SetDefault(slog.New(elasticlog.NewHandler(bw, os.Stderr, opts)))

			eg.Go(func() error {
				bw.Sync(ctx)

				if err := bw.Close(); err != nil {
					console.Error("cannot flush log messages", "error", err)
				}

				return nil
			})
		}
	}

	path, err := resolvePath(cfg.Watch.Path, os.Stdin, os.Stdout)

	if err != nil {
		return err
	}

	mode := pickMode(cfg.Watch.Mode, path)

	ctx = log.With(ctx, slog.String("mode", mode), slog.String("path", path))

	var rep reporter = report.NewConsole(os.Stdout)

	if cfg.Report.Format == "log" {
		rep = report.NewLog(log.Logger(ctx))
	}

	w, err := watch.NewWatcher()

	if err != nil {
		return fmt.Errorf("cannot subscribe to file system notifications: %w", err)
	}

	c, err := newSession(ctx, cfg, mode, path, w, rep, os.Stdout)

	if err != nil {
		_ = w.Close()

		return err
	}

	if c == nil {
		_ = w.Close()

		return nil // nothing to watch
	}

	if addr := cfg.Status.ListenAddress; addr != "" {
		srv := control.NewServer(addr, c)

		eg.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
	}

	eg.Go(func() error {
		return session.Run(ctx, w, c)
	})

	err = eg.Wait()

	fmt.Fprintln(os.Stdout, "\nStopping...")

	return err
}

// subscriber is the part of [watch.Watcher] needed to set up a session.
type subscriber interface {
	WatchTree(root string) error
	WatchFile(path string) error
}

// newSession creates the session for mode and subscribes w to the
// notifications it needs. It returns a nil Checker if a tree session
// has no directory to watch.
func newSession(ctx context.Context, cfg config.File, mode, path string, w subscriber, rep reporter, out io.Writer) (session.Checker, error) {
	if mode == config.ModeTree {
		s, err := session.NewTreeSession(path, session.TreeOptions{
			Interval: cfg.TreePollInterval(),
			Ignore:   cfg.Watch.Ignore,
		}, rep)

		if errors.Is(err, watch.ErrNotDir) {
			fmt.Fprintln(out, "Invalid folder path.")

			return nil, nil
		}

		if err != nil {
			return nil, err
		}

		if err := w.WatchTree(path); err != nil {
			return nil, err
		}

		fmt.Fprintf(out, "Watching: %s\n", path)

		return s, nil
	}

	dec, err := tail.ParseDecoding(cfg.Watch.DecodeErrors)

	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(out, "File %s does not exist. Waiting for it to be created...\n", path)
	}

	s := session.NewTailSession(path, session.TailOptions{
		Interval: cfg.PollInterval(),
		Decoding: dec,
	}, rep)

	if err := w.WatchFile(path); err != nil {
		log.Warn(ctx, "cannot subscribe to notifications; relying on polling only", slog.Any("error", err))
	}

	fmt.Fprintf(out, "Tailing log: %s\nPress Ctrl+C to stop.\n", path)

	return s, nil
}

func createBulkWriter(cfg config.File) (*elasticlog.BulkWriter, error) {
	esc, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticSearch.Host},
	})

	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ElasticSearch.ConnectTimeout)*time.Second)
	defer cancel()

	resp, err := esc.Ping(esc.Ping.WithContext(ctx))

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client: esc,
		Index:  cfg.ElasticSearch.Index,
		OnError: func(ctx context.Context, err error) {
			fmt.Fprintln(os.Stderr, "cannot flush log messages:", err)
		},
	})

	if err != nil {
		return nil, err
	}

	bw := elasticlog.NewBulkWriter(bi)

	return bw, nil
}

// resolvePath returns the absolute form of path, asking for it on in
// if it is empty. A leading "~" is expanded to the home directory and
// symbolic links are resolved if path exists.
func resolvePath(path string, in io.Reader, out io.Writer) (string, error) {
	if path == "" {
		if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			fmt.Fprint(out, "Enter the path to watch: ")
		}

		line, err := bufio.NewReader(in).ReadString('\n')

		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("cannot read path: %w", err)
		}

		path = strings.TrimSpace(line)
	}

	if path == "" {
		return "", errors.New("no path to watch")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()

		if err != nil {
			return "", err
		}

		path = filepath.Join(home, path[1:])
	}

	abs, err := filepath.Abs(path)

	if err != nil {
		return "", err
	}

	// a symlinked directory would otherwise be walked as a single leaf.
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	return abs, nil
}

// pickMode resolves [config.ModeAuto]: directories are watched as a tree,
// anything else, including paths that do not exist yet, is tailed.
func pickMode(mode, path string) string {
	if mode != config.ModeAuto {
		return mode
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return config.ModeTree
	}

	return config.ModeTail
}
