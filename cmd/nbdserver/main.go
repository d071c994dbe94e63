// Package main implements a minimal NBD server exposing a
// capture.Disk: every client WRITE is passed through to the backing
// file and appended to a write-capture log, the same write log
// campaign.Runner later slices and replays.
//
// It speaks just enough of the NBD simple wire protocol (no newstyle
// handshake, no TLS, no structured replies) to drive capture.Disk from
// a real client such as nbd-client or qemu's nbd:// driver talking to
// it over a raw TCP connection carrying only request/response frames.
//
// Usage:
//
//	nbdserver -disk=backing.img -log=writes.log -listen=:10809
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/tomato42/fsresck/capture"
	"github.com/tomato42/fsresck/nbd"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	disk := flag.String("disk", "", "backing disk image (required)")
	logFile := flag.String("log", "", "write-capture log path (required)")
	listen := flag.String("listen", ":10809", "address to listen on")
	readonly := flag.Bool("readonly", false, "open the backing disk read-only (rejects WRITE/TRIM)")
	flag.Parse()

	if *disk == "" || *logFile == "" {
		flag.Usage()
		return fmt.Errorf("nbdserver: -disk and -log are required")
	}

	cfg, err := capture.ParseConfig(map[string]string{"disk": *disk, "log": *logFile})
	if err != nil {
		return fmt.Errorf("nbdserver: %w", err)
	}

	d, err := capture.Open(cfg, *readonly)
	if err != nil {
		return fmt.Errorf("nbdserver: open disk: %w", err)
	}
	defer d.Close()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return fmt.Errorf("nbdserver: listen: %w", err)
	}
	defer ln.Close()

	fmt.Printf("nbdserver: serving %s (log %s) on %s\n", *disk, *logFile, *listen)

	for {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("nbdserver: accept: %w", err)
		}
		go serveConn(conn, d, *readonly)
	}
}

// serveConn services one client connection against plugin until the
// client disconnects or a protocol error occurs. Each accepted
// connection is served on its own goroutine, so several may be open and
// active at once against the same capture.Disk; capture.Disk serializes
// their writes under its mutex.
func serveConn(conn net.Conn, plugin capture.Plugin, readonly bool) {
	defer conn.Close()

	for {
		req, err := nbd.DecodeRequest(conn)
		if err == io.EOF {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "nbdserver: decode request: %v\n", err)
			return
		}

		resp := handleRequest(plugin, req, readonly)
		hasPayload := req.Type == nbd.Read && resp.Error == 0
		if err := resp.Encode(conn, hasPayload); err != nil {
			fmt.Fprintf(os.Stderr, "nbdserver: encode response: %v\n", err)
			return
		}

		if req.Type == nbd.Disc {
			return
		}
	}
}

// handleRequest dispatches one decoded request to plugin and builds the
// matching response.
func handleRequest(plugin capture.Plugin, req nbd.Request, readonly bool) nbd.Response {
	switch req.Type {
	case nbd.Read:
		data := make([]byte, req.Length)
		if _, err := plugin.Pread(data, req.Offset); err != nil {
			return nbd.Response{Error: nbd.EIO, Handle: req.Handle}
		}
		return nbd.Response{Handle: req.Handle, Data: data}

	case nbd.Write:
		if readonly {
			return nbd.Response{Error: nbd.EPERM, Handle: req.Handle}
		}
		if err := plugin.Pwrite(req.Data, req.Offset); err != nil {
			return nbd.Response{Error: nbd.EIO, Handle: req.Handle}
		}
		return nbd.Response{Handle: req.Handle}

	case nbd.Trim:
		if readonly {
			return nbd.Response{Error: nbd.EPERM, Handle: req.Handle}
		}
		if err := plugin.Zero(int(req.Length), req.Offset, true); err != nil {
			return nbd.Response{Error: nbd.EIO, Handle: req.Handle}
		}
		return nbd.Response{Handle: req.Handle}

	case nbd.Flush:
		return nbd.Response{Handle: req.Handle}

	case nbd.Disc:
		return nbd.Response{Handle: req.Handle}

	default:
		return nbd.Response{Error: nbd.EINVAL, Handle: req.Handle}
	}
}
