package main

import (
	"context"
	"fmt"
	"os"

	"fabriq-content/cmd/content-pipeline/commands"
	"fabriq-content/lib/osutil"
	"fabriq-content/lib/telemetry"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())

	tel, err := telemetry.SetupFromEnv(ctx, "content-pipeline")
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup telemetry:", err)
	}

	err = commands.ExecuteContext(ctx)
	stop()
	tel.Shutdown(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
