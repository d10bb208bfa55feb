//go:build !windows

package app

import (
	"os"
	"syscall"
)

// shutdownSignals stop an in-flight scan or cleanup.
var shutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
