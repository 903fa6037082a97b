package main

import (
	"context"
	"gugu/cmd/gugu/commands"
	"gugu/lib/osutil"
)

func main() {
	ctx, stop := osutil.SignalContext(context.Background())
	defer stop()
	commands.ExecuteContext(ctx)
}
