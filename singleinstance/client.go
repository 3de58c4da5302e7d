package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"time"
)

// Send forwards cmd to a resident. It reports delegated=false with a nil
// error when no resident answers in the port range.
func Send(ctx context.Context, cmd Command) (delegated bool, err error) {
	timeout := 300 * time.Millisecond
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < timeout {
			timeout = d
		}
	}
	start, end := PortRange()
	for port := start; port <= end; port++ {
		addr := net.JoinHostPort(residentHost, strconv.Itoa(port))
		if _, err := roundTrip(addr, ping, timeout); err != nil {
			continue
		}
		resp, err := roundTrip(addr, cmd, 2*time.Second)
		if err != nil {
			return true, err
		}
		if resp != "OK" {
			return true, errors.New(resp)
		}
		return true, nil
	}
	return false, nil
}

// roundTrip sends one command line and returns the status line, or the
// error text the resident sent after an ERROR status.
func roundTrip(addr string, cmd Command, timeout time.Duration) (string, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(string(cmd) + "\n"); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	switch status {
	case "PONG\n":
		return "PONG", nil
	case "OK\n":
		return "OK", nil
	case "ERROR\n":
		msg, _ := io.ReadAll(br)
		return "", errors.New(string(msg))
	default:
		return "", errors.New("unexpected response " + strconv.Quote(status))
	}
}
