package servo

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePort struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	writes   []time.Time
	closed   bool
	writeErr error
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.writes = append(p.writes, time.Now())
	return p.buf.Write(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.String()
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPulseWritesActiveThenHome(t *testing.T) {
	port := &fakePort{}
	s := NewWithPort(port, "fake", 20*time.Millisecond, testLogger())

	require.NoError(t, s.Pulse(context.Background(), 0))

	assert.Equal(t, "fh", port.String())
	require.Len(t, port.writes, 2)
	assert.GreaterOrEqual(t, port.writes[1].Sub(port.writes[0]), 20*time.Millisecond)
}

func TestPulseHonoursExplicitDuration(t *testing.T) {
	port := &fakePort{}
	s := NewWithPort(port, "fake", time.Hour, testLogger())

	start := time.Now()
	require.NoError(t, s.Pulse(context.Background(), 10*time.Millisecond))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "fh", port.String())
}

func TestPulseCancelledStillReturnsHome(t *testing.T) {
	port := &fakePort{}
	s := NewWithPort(port, "fake", time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := s.Pulse(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "fh", port.String())
}

func TestPulseWriteFailure(t *testing.T) {
	port := &fakePort{writeErr: errors.New("unplugged")}
	s := NewWithPort(port, "fake", time.Millisecond, testLogger())

	err := s.Pulse(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unplugged")
}

func TestHomeAndClose(t *testing.T) {
	port := &fakePort{}
	s := NewWithPort(port, "fake", time.Millisecond, testLogger())

	assert.True(t, s.Available())
	require.NoError(t, s.Home())
	assert.Equal(t, "h", port.String())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, port.closed)
	assert.False(t, s.Available())

	assert.ErrorIs(t, s.Home(), ErrNotConnected)
	assert.ErrorIs(t, s.Pulse(context.Background(), 0), ErrNotConnected)
}

func TestOpenRejectsEmptyPort(t *testing.T) {
	_, err := Open(Config{}, testLogger())
	assert.Error(t, err)
}

func TestNoopServo(t *testing.T) {
	s := NewNoop(testLogger())

	assert.False(t, s.Available())
	assert.NoError(t, s.Pulse(context.Background(), time.Hour))
	assert.NoError(t, s.Home())
	assert.NoError(t, s.Close())
}

func TestParkSendsHome(t *testing.T) {
	port := &fakePort{}
	s := park(NewWithPort(port, "fake", time.Second, testLogger()), testLogger())

	assert.True(t, s.Available())
	assert.Equal(t, "h", port.String())
}

func TestParkToleratesWriteFailure(t *testing.T) {
	port := &fakePort{writeErr: errors.New("unplugged")}

	assert.NotPanics(t, func() {
		park(NewWithPort(port, "fake", time.Second, testLogger()), testLogger())
	})
}
