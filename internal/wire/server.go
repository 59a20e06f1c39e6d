package wire

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rfoster/cuecall/internal/command"
	"github.com/rfoster/cuecall/internal/dispatch"
	"github.com/rfoster/cuecall/internal/metrics"
)

const (
	maxDatagramSize = 2048

	// Senders are connectionless, so sessions are evicted after silence
	// instead of on disconnect.
	sessionIdleTimeout = 10 * time.Minute
)

// Server listens for command datagrams and routes them through the shared
// dispatcher. Sessions are keyed by sender address, so distinct operators can
// drive distinct events over the same socket.
type Server struct {
	addr       string
	dispatcher *dispatch.Dispatcher
	sessions   *dispatch.SessionRegistry
	logger     *slog.Logger
	now        func() time.Time

	// lastSeen is touched only from the read loop.
	lastSeen map[string]time.Time
}

func NewServer(addr string, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *Server {
	return &Server{
		addr:       addr,
		dispatcher: dispatcher,
		sessions:   dispatch.NewSessionRegistry(),
		logger:     logger,
		now:        time.Now,
		lastSeen:   make(map[string]time.Time),
	}
}

// Run listens until the context is cancelled. Datagrams are processed
// sequentially; per-event ordering is already guaranteed by the dispatcher,
// and a live show's command rate is far below what one reader loop handles.
func (s *Server) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", s.addr)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.logger.Info("wire protocol listening", "addr", conn.LocalAddr().String())

	buf := make([]byte, maxDatagramSize)
	for {
		n, sender, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read datagram: %w", err)
		}

		resp := s.handle(sender.String(), buf[:n])
		if _, err := conn.WriteTo(resp, sender); err != nil {
			s.logger.Warn("write response", "sender", sender.String(), "error", err)
		}
	}
}

// handle runs one datagram through parse and dispatch and returns the
// response to send. Errors are echoed, never dropped.
func (s *Server) handle(senderKey string, data []byte) []byte {
	s.touch(senderKey)

	address, args := parseDatagram(data)

	op, err := command.Parse(address, args)
	if err != nil {
		metrics.WireDatagramsTotal.WithLabelValues("parse_error").Inc()
		s.logger.Warn("bad command", "sender", senderKey, "address", address, "error", err)
		return errorResponse(err)
	}

	sess := s.sessions.Get(senderKey)
	ack, err := s.dispatcher.Execute(sess, op)
	if err != nil {
		metrics.WireDatagramsTotal.WithLabelValues("dispatch_error").Inc()
		return errorResponse(err)
	}

	metrics.WireDatagramsTotal.WithLabelValues("ok").Inc()
	return formatAck(ack)
}

// touch stamps the sender's activity and evicts sessions that have been
// silent past the idle timeout, so the per-sender map stays bounded by the
// set of recently active operators.
func (s *Server) touch(senderKey string) {
	now := s.now()
	s.lastSeen[senderKey] = now

	for key, seen := range s.lastSeen {
		if key == senderKey {
			continue
		}
		if now.Sub(seen) >= sessionIdleTimeout {
			s.sessions.Remove(key)
			delete(s.lastSeen, key)
			s.logger.Debug("evicted idle session", "sender", key)
		}
	}
}
