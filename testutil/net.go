/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// WaitPortAndListeningServer waits until the port is known and the server accepts TCP connections on it.
func WaitPortAndListeningServer(host string, getPort func() int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	port := getPort()
	for port <= 0 {
		if time.Now().After(deadline) {
			return 0, errors.New("waiting for listening port timed out")
		}
		time.Sleep(10 * time.Millisecond)
		port = getPort()
	}
	addr := fmt.Sprintf("%s:%d", host, port)
	for {
		if conn, err := net.DialTimeout("tcp", addr, time.Second); err == nil {
			return port, conn.Close()
		}
		if time.Now().After(deadline) {
			return 0, errors.New("waiting for listening server timed out")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
