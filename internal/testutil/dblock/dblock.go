// Package dblock serializes test packages that truncate the shared database.
package dblock

import (
	"net"
	"time"
)

// A loopback listener doubles as a cross-process mutex; the port is
// arbitrary but must match across test packages.
const lockAddr = "127.0.0.1:46632"

// Acquire blocks until the lock is free and returns its release func.
func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
