package runner

import (
	"context"
	"strings"
	"sync"
)

// Call records one invocation made through a Fake.
type Call struct {
	Name string
	Args []string
}

// Fake is a scripted Runner. Func decides the outcome of each call; a nil Func succeeds with no output.
type Fake struct {
	Func func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)

	mu    sync.Mutex
	calls []Call
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.Func == nil {
		return nil, nil, nil
	}
	return f.Func(ctx, name, args...)
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (c Call) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}
