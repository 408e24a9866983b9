package publisher

import (
	"FaceTrigger/internal/entity"
	"FaceTrigger/internal/state"
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

type memorySink struct {
	mu     sync.Mutex
	states []entity.FaceState
	events []entity.ServoEvent
	fail   bool
}

func (m *memorySink) PublishFaceState(ctx context.Context, s entity.FaceState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("redis down")
	}
	m.states = append(m.states, s)
	return nil
}

func (m *memorySink) PublishServoEvent(ctx context.Context, e entity.ServoEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("redis down")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memorySink) stateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestRunMirrorsInitialStateAndChanges(t *testing.T) {
	sink := &memorySink{}
	store := state.New()
	p := New(testLogger(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, store)
		close(done)
	}()

	require.Eventually(t, func() bool { return sink.stateCount() == 1 }, time.Second, 5*time.Millisecond)

	store.Set(true, time.Now())
	store.Set(true, time.Now())
	store.Set(false, time.Now())

	require.Eventually(t, func() bool { return sink.stateCount() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.False(t, sink.states[0].FaceDetected)
	assert.True(t, sink.states[1].FaceDetected)
	assert.False(t, sink.states[2].FaceDetected)
}

func TestSinkFailuresDoNotStopRun(t *testing.T) {
	sink := &memorySink{fail: true}
	store := state.New()
	p := New(testLogger(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, store)
		close(done)
	}()

	store.Set(true, time.Now())
	p.ServoListener()(entity.ServoEvent{ID: "x"})

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestServoListenerForwardsEvents(t *testing.T) {
	sink := &memorySink{}
	p := New(testLogger(), sink)

	p.ServoListener()(entity.ServoEvent{ID: "abc", Source: entity.ServoSourceDetection})

	require.Len(t, sink.events, 1)
	assert.Equal(t, "abc", sink.events[0].ID)
}

type stallingSink struct {
	memorySink
	release chan struct{}
	once    sync.Once
}

func (s *stallingSink) PublishFaceState(ctx context.Context, st entity.FaceState) error {
	s.once.Do(func() { <-s.release })
	return s.memorySink.PublishFaceState(ctx, st)
}

func (s *stallingSink) last() (entity.FaceState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.states) == 0 {
		return entity.FaceState{}, false
	}
	return s.states[len(s.states)-1], true
}

func TestSlowSinkStillMirrorsFinalState(t *testing.T) {
	sink := &stallingSink{release: make(chan struct{})}
	store := state.New()
	p := New(testLogger(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx, store)

	for i := 0; i < 41; i++ {
		store.Set(i%2 == 0, time.Now())
	}
	require.True(t, store.Snapshot().FaceDetected)

	close(sink.release)

	require.Eventually(t, func() bool {
		st, ok := sink.last()
		return ok && st.FaceDetected && st.Frames == 41
	}, time.Second, 5*time.Millisecond)
}
