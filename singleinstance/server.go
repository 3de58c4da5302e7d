package singleinstance

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"
)

// Server answers pings and forwarded commands for the resident.
type Server struct {
	lis     net.Listener
	port    int
	handler func(Command) error
}

// Listen binds the start port of the configured range and serves until
// ctx is done or Close is called. handler runs on the accept goroutine.
func Listen(ctx context.Context, handler func(Command) error) (*Server, error) {
	start, _ := PortRange()
	addr := fmt.Sprintf("%s:%d", residentHost, start)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", addr, err)
	}
	s := &Server{lis: lis, port: start, handler: handler}
	log.Printf("SINGLEINSTANCE: listening on %s", addr)
	go s.acceptLoop()
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()
	return s, nil
}

// Port returns the bound port.
func (s *Server) Port() int { return s.port }

func (s *Server) Close() error {
	return s.lis.Close()
}

func (s *Server) acceptLoop() {
	for {
		c, err := s.lis.Accept()
		if err != nil {
			return
		}
		s.serve(c)
	}
}

func (s *Server) serve(c net.Conn) {
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		return
	}
	cmd, err := parseCommand(strings.TrimSpace(line))
	if err != nil {
		fmt.Fprintf(c, "ERROR\n%v", err)
		return
	}
	if cmd == ping {
		fmt.Fprint(c, "PONG\n")
		return
	}

	log.Printf("SINGLEINSTANCE: %s from %s", cmd, c.RemoteAddr())
	if s.handler != nil {
		if err := s.handler(cmd); err != nil {
			fmt.Fprintf(c, "ERROR\n%v", err)
			return
		}
	}
	fmt.Fprint(c, "OK\n")
}
