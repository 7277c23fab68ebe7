package server

import (
	"context"
	"errors"
	"strings"

	"github.com/tidwall/redcon"

	"github.com/KilimcininKorOglu/quorum/internal/raft"
)

// NotLeaderPrefix starts the error a non-leader returns for SUBMIT and
// QUERY. It is followed by the leader's client address when known.
const NotLeaderPrefix = "NOTLEADER"

// CommandHandler serves one RESP command.
type CommandHandler func(ctx context.Context, conn redcon.Conn, args [][]byte)

func (s *Server) commands() map[string]CommandHandler {
	return map[string]CommandHandler{
		"PING":   s.cmdPing,
		"STATUS": s.cmdStatus,
		"LEADER": s.cmdLeader,
		"SUBMIT": s.cmdSubmit,
		"QUERY":  s.cmdQuery,
		"QUIT":   s.cmdQuit,
	}
}

func (s *Server) execute(conn redcon.Conn, args [][]byte) {
	if len(args) == 0 {
		conn.WriteError("ERR empty command")
		return
	}

	name := strings.ToUpper(string(args[0]))
	handler, ok := s.handlers[name]
	if !ok {
		conn.WriteError("ERR unknown command '" + string(args[0]) + "'")
		return
	}
	handler(context.Background(), conn, args[1:])
}

func (s *Server) cmdPing(_ context.Context, conn redcon.Conn, args [][]byte) {
	if len(args) > 0 {
		conn.WriteBulk(args[0])
		return
	}
	conn.WriteString("PONG")
}

func (s *Server) cmdStatus(_ context.Context, conn redcon.Conn, _ [][]byte) {
	conn.WriteString(s.backend.Status().String())
}

func (s *Server) cmdLeader(_ context.Context, conn redcon.Conn, _ [][]byte) {
	ep, ok := s.backend.LeaderClientEndpoint()
	if !ok {
		conn.WriteNull()
		return
	}
	conn.WriteBulkString(ep.String())
}

func (s *Server) cmdSubmit(ctx context.Context, conn redcon.Conn, args [][]byte) {
	s.forward(ctx, conn, "SUBMIT", args, s.backend.Apply)
}

func (s *Server) cmdQuery(ctx context.Context, conn redcon.Conn, args [][]byte) {
	s.forward(ctx, conn, "QUERY", args, s.backend.Query)
}

func (s *Server) cmdQuit(_ context.Context, conn redcon.Conn, _ [][]byte) {
	conn.WriteString("OK")
	conn.Close()
}

func (s *Server) forward(ctx context.Context, conn redcon.Conn, name string, args [][]byte,
	call func(context.Context, []byte) ([]byte, error)) {
	if len(args) != 1 {
		conn.WriteError("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, err := call(ctx, args[0])
	switch {
	case err == nil:
		conn.WriteBulk(out)
	case errors.Is(err, raft.ErrNotLeader), errors.Is(err, raft.ErrNotRunning):
		s.writeNotLeader(conn)
	default:
		s.logger.Debug("request failed", "command", name, "error", err)
		conn.WriteError("ERR " + err.Error())
	}
}

func (s *Server) writeNotLeader(conn redcon.Conn) {
	if ep, ok := s.backend.LeaderClientEndpoint(); ok {
		conn.WriteError(NotLeaderPrefix + " " + ep.String())
		return
	}
	conn.WriteError(NotLeaderPrefix)
}
