package network

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"
)

// TestPipeSendBeforeReceive checks both ends can send before either receives.
func TestPipeSendBeforeReceive(t *testing.T) {
	a, b := Pipe()

	if err := a.Send(1); err != nil {
		t.Fatalf("a send: %v", err)
	}

	if err := b.Send(0); err != nil {
		t.Fatalf("b send: %v", err)
	}

	got, err := a.Receive()
	if err != nil || got != 0 {
		t.Errorf("a received (%d, %v), want (0, nil)", got, err)
	}

	got, err = b.Receive()
	if err != nil || got != 1 {
		t.Errorf("b received (%d, %v), want (1, nil)", got, err)
	}
}

// TestPipeClose checks queued bytes survive Close and later reads fail.
func TestPipeClose(t *testing.T) {
	a, b := Pipe()

	if err := a.Send(255); err != nil {
		t.Fatalf("send: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if err := a.Send(1); !errors.Is(err, ErrClosed) {
		t.Errorf("send after close: %v, want ErrClosed", err)
	}

	got, err := b.Receive()
	if err != nil || got != 255 {
		t.Fatalf("received (%d, %v), want (255, nil)", got, err)
	}

	if _, err := b.Receive(); !errors.Is(err, ErrClosed) {
		t.Errorf("receive after close: %v, want ErrClosed", err)
	}
}

// TestPipeReceiveAfterLocalClose checks a local Close fails later reads and
// wakes a blocked one.
func TestPipeReceiveAfterLocalClose(t *testing.T) {
	a, b := Pipe()
	defer b.Close()

	blocked := make(chan error, 1)
	go func() {
		_, err := a.Receive()
		blocked <- err
	}()

	time.Sleep(20 * time.Millisecond)

	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case err := <-blocked:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("blocked receive: %v, want ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("receive still blocked after close")
	}

	if err := b.Send(7); err != nil {
		t.Fatalf("send to closed end: %v", err)
	}

	if _, err := a.Receive(); !errors.Is(err, ErrClosed) {
		t.Errorf("receive after close: %v, want ErrClosed", err)
	}
}

// TestFrameRoundTrip checks framing over a buffer and the size bound.
func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("roster")

	if err := WriteFrame(&buf, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}

	if err := WriteFrame(&buf, make([]byte, maxFrameSize+1)); err == nil {
		t.Error("oversized frame accepted")
	}
}

// TestEndpointRequiresAddress checks configuration validation.
func TestEndpointRequiresAddress(t *testing.T) {
	if _, err := NewEndpoint(Config{}); err == nil {
		t.Error("endpoint without address accepted")
	}
}

// TestQUICChannel exchanges bytes and a frame over a loopback QUIC connection.
func TestQUICChannel(t *testing.T) {
	serverKey, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	server, err := NewEndpoint(Config{PrivateKey: serverKey, ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("create server: %v", err)
	}

	if err := server.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	client, err := NewEndpoint(Config{ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	accepted := make(chan *Conn, 1)
	acceptErr := make(chan error, 1)

	go func() {
		c, err := server.Accept(ctx)
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- c
	}()

	dialed, err := client.Dial(ctx, server.Addr())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	// The stream is only announced once the dialer writes.
	if err := dialed.Send(7); err != nil {
		t.Fatalf("send preamble: %v", err)
	}

	var remote *Conn
	select {
	case remote = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("accept: %v", err)
	case <-ctx.Done():
		t.Fatal("timeout waiting for accept")
	}

	if !bytes.Equal(dialed.RemoteKey(), serverKey.Public().(ed25519.PublicKey)) {
		t.Error("dialer sees wrong server key")
	}

	got, err := remote.Receive()
	if err != nil || got != 7 {
		t.Fatalf("preamble (%d, %v), want (7, nil)", got, err)
	}

	if err := remote.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	frame, err := dialed.ReadFrame()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}

	if string(frame) != "hello" {
		t.Errorf("frame = %q, want hello", frame)
	}

	// Both ends send before receiving, as a protocol round does.
	if err := dialed.Send(1); err != nil {
		t.Fatalf("dialer send: %v", err)
	}

	if err := remote.Send(0); err != nil {
		t.Fatalf("acceptor send: %v", err)
	}

	if b, err := dialed.Receive(); err != nil || b != 0 {
		t.Errorf("dialer received (%d, %v)", b, err)
	}

	if b, err := remote.Receive(); err != nil || b != 1 {
		t.Errorf("acceptor received (%d, %v)", b, err)
	}

	// Bytes written right before Close must still arrive.
	if err := remote.Send(255); err != nil {
		t.Fatalf("send terminate: %v", err)
	}

	closed := make(chan error, 1)
	go func() { closed <- remote.Close() }()

	if b, err := dialed.Receive(); err != nil || b != 255 {
		t.Errorf("terminate received (%d, %v)", b, err)
	}

	dialed.Close()
	<-closed
}
