package server

import (
	"k8s.io/klog/v2"

	"github.com/madhumita77/blinkdb-project/internal/commands"
	"github.com/madhumita77/blinkdb-project/internal/engine"
	"github.com/madhumita77/blinkdb-project/internal/resp"
)

// maxBufferedCommand bounds how much unparsed input a single connection
// may accumulate before it is treated as malformed: accumulate across
// reads instead of parsing a single fixed-size chunk, but still refuse
// to buffer unboundedly for a client that never completes a command.
const maxBufferedCommand = 1 << 20

// clientConn holds the not-yet-parsed bytes for one socket. It has no
// notion of the underlying file descriptor or connection lifecycle;
// server_linux.go and server_other.go each drive it from their own event
// loop shape.
type clientConn struct {
	buf []byte
}

// feed appends chunk to the connection's accumulated input and attempts
// to parse exactly one command from the result. A nil return means
// "wait for more bytes" (chunk didn't complete a command and the buffer
// is still under its cap). Any other return is a reply to write back;
// the accumulated buffer is always cleared before returning one, since
// this server parses one command per logical request and does not
// support pipelining.
func (c *clientConn) feed(e *engine.Engine, chunk []byte) []byte {
	c.buf = append(c.buf, chunk...)

	args, err := resp.ParseCommand(c.buf)
	switch err {
	case nil:
		c.buf = c.buf[:0]
		return commands.Dispatch(e, args)
	case resp.ErrIncompleteCommand:
		if len(c.buf) < maxBufferedCommand {
			return nil
		}
		klog.Warningf("server: connection exceeded %d-byte command buffer without completing a command", maxBufferedCommand)
		c.buf = c.buf[:0]
		return resp.EncodeError("Invalid Command")
	default:
		c.buf = c.buf[:0]
		return resp.EncodeError("Invalid Command")
	}
}
