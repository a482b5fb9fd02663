package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/oetiker/mkp-builder/pkg/output"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		renderer, rerr := output.NewRenderer(os.Stderr, output.DetectNoColor(os.Stderr))
		if rerr == nil {
			_ = renderer.RenderError(err)
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		os.Exit(1)
	}
}
