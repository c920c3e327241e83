// Command cbird indexes a media library and finds duplicate and similar
// images in it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fortemezzo/cbird/internal/startup"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()

	if err := NewRootCmd(startup.Version, a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "cbird: %v\n", err)
		return 1
	}
	return 0
}
