package wsbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"tad/apu"
)

// Server exposes Ports to websocket clients. Port accesses from all connections are
// serialized.
type Server struct {
	Ports apu.Ports

	mu sync.Mutex
}

func NewServer(ports apu.Ports) *Server {
	return &Server{Ports: ports}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		log.Printf("wsbridge: upgrade %s: %v\n", r.RemoteAddr, err)
		return
	}

	if err = s.serve(conn); err != nil {
		var closed wsutil.ClosedError
		if !errors.As(err, &closed) && !errors.Is(err, io.EOF) {
			log.Printf("wsbridge: %s: %v\n", r.RemoteAddr, err)
		}
	}
}

func (s *Server) serve(conn net.Conn) error {
	defer conn.Close()

	name := ""
	for {
		msg, op, err := wsutil.ReadClientData(conn)
		if err != nil {
			return err
		}
		if op != ws.OpText {
			continue
		}

		var cmd Command
		if err = json.Unmarshal(msg, &cmd); err != nil {
			return fmt.Errorf("decode command: %w", err)
		}

		if cmd.Opcode == OpName {
			if len(cmd.Operands) > 0 {
				name = cmd.Operands[0]
			}
			log.Printf("wsbridge: client [%s] connected\n", name)
			continue
		}

		rsp, err := s.execute(&cmd)
		if err != nil {
			_ = wsutil.WriteServerMessage(conn, ws.OpClose, ws.NewCloseFrameBody(ws.StatusProtocolError, err.Error()))
			return fmt.Errorf("[%s] %w", name, err)
		}
		if rsp == nil {
			continue
		}

		b, err := json.Marshal(rsp)
		if err != nil {
			return err
		}
		if err = wsutil.WriteServerMessage(conn, ws.OpText, b); err != nil {
			return err
		}
	}
}

func (s *Server) execute(cmd *Command) (*Result, error) {
	if cmd.Space != SpaceAPU {
		return nil, fmt.Errorf("%s: unsupported space %q", cmd.Opcode, cmd.Space)
	}

	switch cmd.Opcode {
	case OpRead:
		if len(cmd.Operands) != 1 {
			return nil, fmt.Errorf("%s: expected 1 operand, got %d", cmd.Opcode, len(cmd.Operands))
		}
		port, err := parsePort(cmd.Operands[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Opcode, err)
		}

		s.mu.Lock()
		v := s.Ports.ReadPort(port)
		s.mu.Unlock()

		return &Result{Results: []string{formatHex(v)}}, nil

	case OpWrite:
		if len(cmd.Operands) != 2 {
			return nil, fmt.Errorf("%s: expected 2 operands, got %d", cmd.Opcode, len(cmd.Operands))
		}
		port, err := parsePort(cmd.Operands[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Opcode, err)
		}
		v, err := parseHex(cmd.Operands[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cmd.Opcode, err)
		}

		s.mu.Lock()
		s.Ports.WritePort(port, v)
		s.mu.Unlock()

		return nil, nil
	}

	return nil, fmt.Errorf("unknown opcode %q", cmd.Opcode)
}
