package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/velocity-9/v9-router/internal/app"
	"github.com/velocity-9/v9-router/internal/platform/shutdown"
)

func main() {
	development := flag.Bool("development", false, "enable development-mode logging")
	flag.Parse()

	a, err := app.New(*development)
	if err != nil {
		fmt.Printf("failed to initialize router: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if err := a.Run(ctx); err != nil {
		fmt.Printf("router exited: %v\n", err)
		os.Exit(1)
	}
}
