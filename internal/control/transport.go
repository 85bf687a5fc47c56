package control

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/logging"
	"github.com/muurk/dante-control/internal/protocol"
)

// Transport sends one request datagram to addr and returns the first reply
// datagram for which accept returns true. Datagrams that are not accepted
// are discarded. It returns when ctx is done.
type Transport interface {
	Exchange(ctx context.Context, addr string, request []byte, accept func([]byte) bool) ([]byte, error)
}

// UDPTransport opens a fresh UDP socket for every exchange.
type UDPTransport struct{}

// Exchange implements Transport
func (UDPTransport) Exchange(ctx context.Context, addr string, request []byte, accept func([]byte) bool) ([]byte, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	// unblock the read if ctx is cancelled before the deadline
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	logging.LogControlExchange(addr, "sent", request)
	if _, err := conn.Write(request); err != nil {
		return nil, err
	}

	buf := make([]byte, protocol.MaxFrameSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return nil, context.DeadlineExceeded
			}
			return nil, err
		}

		data := append([]byte(nil), buf[:n]...)
		logging.LogControlExchange(addr, "received", data)
		if accept(data) {
			return data, nil
		}
		logging.Debug("Ignoring unmatched reply", zap.String("addr", addr), zap.Int("length", n))
	}
}
