package printing

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
)

// fakeRunner records commands and fails the programs listed in failing
type fakeRunner struct {
	mu        sync.Mutex
	installed map[string]bool
	failing   map[string]error
	outputs   map[string][]byte
	calls     [][]string
}

func newFakeRunner(installed ...string) *fakeRunner {
	r := &fakeRunner{
		installed: make(map[string]bool),
		failing:   make(map[string]error),
		outputs:   make(map[string][]byte),
	}
	for _, name := range installed {
		r.installed[name] = true
	}
	return r
}

func (r *fakeRunner) LookPath(file string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.installed[file] {
		return file, nil
	}
	return "", exec.ErrNotFound
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.failing[name]
}

func (r *fakeRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	if err := r.failing[name]; err != nil {
		return nil, err
	}
	key := name + " " + strings.Join(args, " ")
	if out, ok := r.outputs[key]; ok {
		return out, nil
	}
	return nil, errors.New("no output configured for " + key)
}

func (r *fakeRunner) programs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c[0])
	}
	return out
}

// fakeOpener records opened paths
type fakeOpener struct {
	openErr   error
	revealErr error
	opened    []string
	revealed  []string
}

func (o *fakeOpener) Open(ctx context.Context, path string) error {
	o.opened = append(o.opened, path)
	return o.openErr
}

func (o *fakeOpener) Reveal(ctx context.Context, dir string) error {
	o.revealed = append(o.revealed, dir)
	return o.revealErr
}
