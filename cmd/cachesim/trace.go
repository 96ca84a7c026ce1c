package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/cache"
)

// traceEntry is one line of a trace file: an address, an access width in
// bytes, and the kind of access (load, store, or fetch), the same triple
// the original simulator's memory tracer dispatches on.
type traceEntry struct {
	addr  uint64
	bytes uint64
	kind  cache.AccessKind
}

// readTrace parses a trace file: one access per line, fields separated by
// whitespace, "<addr> <bytes> <kind>" with addr in decimal or 0x-prefixed
// hex and kind one of "load", "store", "fetch". Blank lines and lines
// starting with "#" are skipped.
func readTrace(r io.Reader) ([]traceEntry, error) {
	var entries []traceEntry

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("trace line %d: expected 3 fields, got %d", lineNo, len(fields))
		}

		addr, err := strconv.ParseUint(fields[0], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: invalid address %q: %w", lineNo, fields[0], err)
		}
		bytes, err := strconv.ParseUint(fields[1], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: invalid byte count %q: %w", lineNo, fields[1], err)
		}

		kind, err := parseAccessKind(fields[2])
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", lineNo, err)
		}

		entries = append(entries, traceEntry{addr: addr, bytes: bytes, kind: kind})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	return entries, nil
}

func parseAccessKind(s string) (cache.AccessKind, error) {
	switch s {
	case "load":
		return cache.Load, nil
	case "store":
		return cache.Store, nil
	case "fetch":
		return cache.Fetch, nil
	default:
		return 0, fmt.Errorf(`unknown access kind %q, expected "load", "store" or "fetch"`, s)
	}
}
