package network

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
)

// closeLinger bounds how long Close waits for the remote end to finish
// sending before tearing the connection down.
const closeLinger = 2 * time.Second

// Conn is a Channel over one QUIC connection and its single stream.
type Conn struct {
	conn   *quic.Conn        // conn is the underlying QUIC connection
	stream *quic.Stream      // stream carries every byte of the channel
	remote ed25519.PublicKey // remote is the other end's ed25519 public key
	closed atomic.Bool       // closed indicates if the channel is closed
	sendMu sync.Mutex        // sendMu serializes writes
	recvMu sync.Mutex        // recvMu serializes reads
}

// newConn wraps an established connection and stream.
func newConn(conn *quic.Conn, stream *quic.Stream) (*Conn, error) {
	remote, err := remoteKey(conn.ConnectionState().TLS)
	if err != nil {
		conn.CloseWithError(1, "bad certificate")
		return nil, fmt.Errorf("extract public key: %w", err)
	}

	return &Conn{conn: conn, stream: stream, remote: remote}, nil
}

// RemoteKey returns the other end's public key.
func (c *Conn) RemoteKey() ed25519.PublicKey {
	return c.remote
}

// RemoteAddr returns the other end's UDP address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Send writes one byte.
func (c *Conn) Send(b byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if _, err := c.stream.Write([]byte{b}); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

// Receive blocks until one byte arrives.
func (c *Conn) Receive() (byte, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	var buf [1]byte
	if _, err := io.ReadFull(c.stream, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || c.closed.Load() {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("read: %w", err)
	}

	return buf[0], nil
}

// WriteFrame writes a length-prefixed frame on the channel's stream.
func (c *Conn) WriteFrame(data []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	return WriteFrame(c.stream, data)
}

// ReadFrame reads a length-prefixed frame from the channel's stream.
func (c *Conn) ReadFrame() ([]byte, error) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	return ReadFrame(c.stream)
}

// Close finishes the send side, waits briefly for the remote end to finish
// too, then closes the connection. Bytes written before Close are delivered.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.sendMu.Lock()
	err := c.stream.Close()
	c.sendMu.Unlock()

	c.stream.SetReadDeadline(time.Now().Add(closeLinger))
	io.Copy(io.Discard, c.stream)

	if cerr := c.conn.CloseWithError(0, "closed"); err == nil {
		err = cerr
	}

	return err
}
