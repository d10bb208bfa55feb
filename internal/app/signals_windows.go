//go:build windows

package app

import "os"

// shutdownSignals stop an in-flight scan or cleanup.
var shutdownSignals = []os.Signal{os.Interrupt}
