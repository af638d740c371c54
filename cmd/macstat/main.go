// macstat - macOS device presence monitor and system utilities
//
//	macstat watch [peripheral|usb|audio|display]   Report device connects and disconnects
//	macstat sysinfo [--watch]                      Show CPU, memory and disk usage
//	macstat count <dir>                            Count C/C++ header and source lines
//	macstat config show|init|path                  Inspect the configuration
//	macstat version                                Print the version
//
// Type q and press Enter to stop a watch.
package main

import (
	"os"
	"runtime"
)

// version is set at build time via -ldflags.
var version = "dev"

func init() {
	// The OS notification sources run on the main thread's run loop.
	runtime.LockOSThread()
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
