// Package singleinstance keeps one resident per user session. A second
// launch forwards its request to the resident over TCP loopback and exits.
package singleinstance

import (
	"errors"
	"os"
	"strconv"
)

const (
	defaultPortStart = 49600
	defaultPortEnd   = 49610
	residentHost     = "127.0.0.1"
)

// Command is a request a later launch forwards to the resident.
type Command string

const (
	// Front raises the frame of the resident.
	Front Command = "FRONT"
	// Toggle starts or stops sharing in the resident.
	Toggle Command = "TOGGLE"

	ping Command = "PING"
)

var ErrUnknownCommand = errors.New("unknown command")

func parseCommand(line string) (Command, error) {
	switch c := Command(line); c {
	case Front, Toggle, ping:
		return c, nil
	default:
		return "", ErrUnknownCommand
	}
}

// PortRange returns the configured TCP port range. Environment variables:
// SINGLEINSTANCE_PORT_START and SINGLEINSTANCE_PORT_END (inclusive).
// Invalid values fall back to the defaults; the range is clamped to
// [1024, 65535].
func PortRange() (int, int) {
	start := defaultPortStart
	end := defaultPortEnd
	if v := os.Getenv("SINGLEINSTANCE_PORT_START"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			start = n
		}
	}
	if v := os.Getenv("SINGLEINSTANCE_PORT_END"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			end = n
		}
	}
	if start < 1024 {
		start = 1024
	}
	if end > 65535 {
		end = 65535
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}
