// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/vfs

// Package main provides hltool, a command line front end for HL5 VFS archives.
//
// Usage:
//
//	hltool extract [options] <archive> <dir>
//	hltool create [options] <archive> <dir>
//	hltool list <archive>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/woozymasta/vfs"
)

// version is set at build time.
var version = "dev"

const dotEnvFile = ".env"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, envLookupFromFile(dotEnvFile, os.Stderr))
	stop()
	os.Exit(code)
}

// envLookupFromFile returns a lookup over the process environment and path.
// An unreadable dotenv file is reported and ignored.
func envLookupFromFile(path string, stderr io.Writer) lookupFunc {
	vars, err := readDotEnv(path)
	if err != nil {
		fmt.Fprintf(stderr, "warning: %v\n", err)
		vars = map[string]string{}
	}

	return envLookup(vars)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, lookup lookupFunc) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	cfg, err := loadConfig(lookup)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	switch args[0] {
	case "extract":
		err = runExtract(ctx, args[1:], cfg, stdout, stderr)
	case "create":
		err = runCreate(ctx, args[1:], cfg, stdout, stderr)
	case "list":
		err = runList(args[1:], stdout, stderr)
	case "-version", "--version", "version":
		fmt.Fprintf(stdout, "hltool %s\n", version)
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "error: %v\n", err)
		}
		return 1
	}

	return 0
}

type extractConfig struct {
	decode  patternList
	workers int
	rawOnly bool
	quiet   bool
}

func runExtract(ctx context.Context, args []string, cfg config, stdout, stderr io.Writer) error {
	ec := extractConfig{workers: cfg.workers}

	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&ec.rawOnly, "raw-only", false, "write raw payloads only, skip decoding")
	fs.IntVar(&ec.workers, "workers", ec.workers, "decode workers (0 means one per CPU)")
	fs.Var(&ec.decode, "decode", "decode only entries matching pattern (repeatable)")
	fs.BoolVar(&ec.quiet, "quiet", false, "print errors only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("extract needs <archive> <dir>")
	}

	archivePath, dir := fs.Arg(0), fs.Arg(1)
	logger := newLogger(stderr, cfg, ec.quiet)

	r, err := vfs.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	res, err := r.Extract(ctx, dir, vfs.ExtractOptions{
		Logger:     logger,
		RawOnly:    ec.rawOnly,
		Decode:     vfs.IncludeRules(ec.decode...),
		MaxWorkers: ec.workers,
	})
	if err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}

	if len(res.Failures) > 0 {
		fmt.Fprintf(stderr, "%d entr(ies) kept raw only:\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(stderr, "  %s: %s\n", f.Path, f.Message)
		}
	}

	if !ec.quiet {
		fmt.Fprintf(stdout, "extracted %d entries (%d decoded) to %s in %s\n",
			res.RawEntries, res.DecodedEntries, dir, res.Duration.Round(time.Millisecond))
	}

	return nil
}

type createConfig struct {
	workers int
	quiet   bool
}

func runCreate(ctx context.Context, args []string, cfg config, stdout, stderr io.Writer) error {
	cc := createConfig{workers: cfg.workers}

	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&cc.workers, "workers", cc.workers, "encode workers (0 means one per CPU)")
	fs.BoolVar(&cc.quiet, "quiet", false, "print errors only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("create needs <archive> <dir>")
	}

	archivePath, dir := fs.Arg(0), fs.Arg(1)
	logger := newLogger(stderr, cfg, cc.quiet)

	res, err := vfs.Create(ctx, dir, archivePath, vfs.CreateOptions{
		Logger:     logger,
		MaxWorkers: cc.workers,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", archivePath, err)
	}

	for _, p := range res.IgnoredRawEdits {
		logger.Warn("raw file changed but decoded source was used", slog.String("path", p))
	}

	if !cc.quiet {
		fmt.Fprintf(stdout, "packed %d entries (%d encoded) into %s in %s\n",
			res.WrittenEntries, res.EncodedEntries, archivePath, res.Duration.Round(time.Millisecond))
	}

	return nil
}

func runList(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("list needs <archive>")
	}

	entries, err := vfs.ListEntries(fs.Arg(0))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HASH\tSIZE\tOFFSET\tPATH")
	for _, e := range entries {
		fmt.Fprintf(tw, "%08x\t%d\t%d\t%s\n", e.Hash, e.Size, e.Offset, e.Path)
	}

	return tw.Flush()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `hltool - HL5 VFS archive tool

Usage:
  hltool <command> [options] <args>

Commands:
  extract <archive> <dir>   Extract raw and decoded entries
  create <archive> <dir>    Build an archive from an extracted directory
  list <archive>            Print archive entries
  version                   Print tool version

Extract Options:
  -raw-only            Write raw payloads only
  -decode <pattern>    Decode only matching entries (repeatable)
  -workers <n>         Decode workers (default: one per CPU)
  -quiet               Print errors only

Create Options:
  -workers <n>         Encode workers (default: one per CPU)
  -quiet               Print errors only

Environment (also read from .env):
  HLTOOL_LOG_LEVEL     debug, info, warn, error (default: info)
  HLTOOL_LOG_FORMAT    text or json (default: text)
  HLTOOL_WORKERS       default worker count`)
}
