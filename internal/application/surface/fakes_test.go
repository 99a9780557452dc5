package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/printbridge/companion/internal/domain/printing"
)

type sentMessage struct {
	channel string
	payload any
}

type fakeSurface struct {
	id      string
	ready   chan struct{}
	closeCh chan struct{}
	done    chan struct{}

	mu        sync.Mutex
	visible   bool
	destroyed bool
	sent      []sentMessage
	showErr   error

	readyOnce sync.Once
	doneOnce  sync.Once
}

func newFakeSurface(id string, ready bool) *fakeSurface {
	s := &fakeSurface{
		id:      id,
		ready:   make(chan struct{}),
		closeCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if ready {
		s.markReady()
	}
	return s
}

func (s *fakeSurface) ID() string                     { return s.id }
func (s *fakeSurface) Ready() <-chan struct{}         { return s.ready }
func (s *fakeSurface) CloseRequests() <-chan struct{} { return s.closeCh }
func (s *fakeSurface) Done() <-chan struct{}          { return s.done }

func (s *fakeSurface) Visible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

func (s *fakeSurface) Show(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.showErr != nil {
		return s.showErr
	}
	s.visible = true
	return nil
}

func (s *fakeSurface) Hide(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	return nil
}

func (s *fakeSurface) Focus(ctx context.Context) error { return nil }

func (s *fakeSurface) Send(ctx context.Context, channel string, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return errors.New("surface destroyed")
	}
	s.sent = append(s.sent, sentMessage{channel: channel, payload: payload})
	return nil
}

func (s *fakeSurface) Destroy() error {
	s.mu.Lock()
	s.destroyed = true
	s.visible = false
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
	return nil
}

func (s *fakeSurface) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *fakeSurface) requestClose() {
	s.closeCh <- struct{}{}
}

func (s *fakeSurface) isDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *fakeSurface) messages(channel string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, m := range s.sent {
		if m.channel == channel {
			out = append(out, m.payload)
		}
	}
	return out
}

func (s *fakeSurface) pushedSessions() []string {
	var out []string
	for _, p := range s.messages(ChannelURLsReceived) {
		out = append(out, p.(DataPayload).Session)
	}
	return out
}

type fakeFactory struct {
	mu           sync.Mutex
	built        []*fakeSurface
	err          error
	readyOnBuild bool
	gate         chan struct{}
	building     atomic.Int32
}

func (f *fakeFactory) Build(ctx context.Context) (Surface, error) {
	f.building.Add(1)
	defer f.building.Add(-1)

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := newFakeSurface(fmt.Sprintf("surface-%d", len(f.built)+1), f.readyOnBuild)
	f.built = append(f.built, s)
	return s, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.built)
}

func (f *fakeFactory) surface(i int) *fakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.built) {
		return nil
	}
	return f.built[i]
}

func (f *fakeFactory) visibleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.built {
		if s.Visible() && !s.isDestroyed() {
			n++
		}
	}
	return n
}

type memSessions struct {
	mu   sync.Mutex
	jobs map[string]*printing.PrintJob
}

func newMemSessions(jobs ...*printing.PrintJob) *memSessions {
	m := &memSessions{jobs: make(map[string]*printing.PrintJob)}
	for _, j := range jobs {
		m.jobs[j.Session] = j
	}
	return m
}

func (m *memSessions) Put(ctx context.Context, job *printing.PrintJob) (*printing.PrintJob, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := job.Clone()
	stored.CreatedAt = time.Now()
	m.jobs[job.Session] = stored
	return stored.Clone(), nil
}

func (m *memSessions) Get(ctx context.Context, session string) (*printing.PrintJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[session]
	return j.Clone(), ok
}

func (m *memSessions) GetAll(ctx context.Context) map[string]*printing.PrintJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*printing.PrintJob, len(m.jobs))
	for k, v := range m.jobs {
		out[k] = v.Clone()
	}
	return out
}

func (m *memSessions) Latest(ctx context.Context) (*printing.PrintJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *printing.PrintJob
	for _, j := range m.jobs {
		if latest == nil || j.CreatedAt.After(latest.CreatedAt) {
			latest = j
		}
	}
	return latest.Clone(), latest != nil
}

func testJob(session string) *printing.PrintJob {
	return &printing.PrintJob{
		Session:       session,
		PreviewURL:    "http://localhost:8080/preview/" + session,
		PaperSize:     printing.PaperSize{Name: "Custom", Width: 100, Height: 150},
		PrintSelector: printing.DefaultPrintSelector,
		CreatedAt:     time.Now(),
	}
}
