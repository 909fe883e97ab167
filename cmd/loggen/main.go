package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"time"

	"git.informatik.uni-hamburg.de/iss/bp-itsec-ss23/fswatch/internal/logfixture"
)

var (
	logFilePath = flag.String("file", "testlog.log", "log file to append to")

	minDelay = flag.Duration("min-delay", 500*time.Millisecond, "minimum delay between entries")
	maxDelay = flag.Duration("max-delay", 5*time.Second, "maximum delay between entries")
)

func main() {
	flag.Parse()

	duration := 3000 * time.Second

	if flag.NArg() > 0 {
		secs, err := strconv.Atoi(flag.Arg(0))

		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid duration %q; using %v\n", flag.Arg(0), duration)
		} else {
			duration = time.Duration(secs) * time.Second
		}
	}

	if err := run(duration); err != nil {
		fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}

func run(duration time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	fmt.Printf("Writing to %s for %v; press Ctrl+C to stop early\n", *logFilePath, duration)

	g := logfixture.New(rand.New(rand.NewSource(time.Now().UnixNano())))

	err := g.Run(ctx, func(entry string) error {
		if err := appendLine(*logFilePath, entry); err != nil {
			// keep going; the file may be rotated away underneath us.
			fmt.Fprintln(os.Stderr, "cannot write log entry:", err)

			return nil
		}

		fmt.Println("Logged:", entry)

		return nil
	}, *minDelay, *maxDelay)

	fmt.Printf("\nLogging completed. Check %s for entries.\n", *logFilePath)

	return err
}

// appendLine opens name for every entry so that external truncation or
// rotation of the file is picked up immediately.
func appendLine(name, line string) error {
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)

	if err != nil {
		return err
	}

	if _, err := f.WriteString(line + "\n"); err != nil {
		_ = f.Close()

		return err
	}

	return f.Close()
}
