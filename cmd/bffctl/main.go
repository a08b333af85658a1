package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jrsteele09/go-staff-bff/internal/bffctl"
	"github.com/jrsteele09/go-staff-bff/internal/config"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	c := config.New()

	fs := flag.NewFlagSet("bffctl", flag.ExitOnError)
	baseURL := fs.String("url", c.GetAppURL(), "base URL of the BFF")
	_ = fs.Parse(os.Args[1:])

	console, err := bffctl.NewConsole(*baseURL, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bffctl: %s\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("connected to %s, type help for commands\n", *baseURL)
	console.Run(ctx)
}
