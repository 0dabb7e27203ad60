package goroutine

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestManagerCollectsErrors(t *testing.T) {
	// Arrange
	m := NewManager(4)
	boom := errors.New("boom")

	// Act
	started := m.Go(context.Background(), "compute", func(context.Context) error { return boom })
	err := m.Wait()

	// Assert
	if !started {
		t.Fatal("expected task to start")
	}
	if !errors.Is(err, boom) || !strings.HasPrefix(err.Error(), "compute: ") {
		t.Fatalf("expected named boom, got %v", err)
	}
}

func TestManagerRecoversPanics(t *testing.T) {
	m := NewManager(1)

	m.Go(context.Background(), "compute", func(context.Context) error { panic("invariant violated") })
	err := m.Wait()

	if !errors.Is(err, ErrPanicked) || !strings.Contains(err.Error(), "invariant violated") {
		t.Fatalf("expected recorded panic, got %v", err)
	}
}

func TestManagerLimit(t *testing.T) {
	// Arrange
	m := NewManager(1)
	release := make(chan struct{})
	running := make(chan struct{})

	// Act
	first := m.Go(context.Background(), "first", func(context.Context) error {
		close(running)
		<-release
		return nil
	})
	<-running
	second := m.Go(context.Background(), "second", func(context.Context) error { return nil })
	close(release)

	// Assert
	if !first {
		t.Fatal("expected first task to start")
	}
	if second {
		t.Fatal("expected second task to be refused at the limit")
	}
	if err := m.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManagerRefusesWork(t *testing.T) {
	tests := []struct {
		name    string
		manager func() *Manager
		ctx     func() context.Context
	}{
		{
			name: "closed",
			manager: func() *Manager {
				m := NewManager(1)
				_ = m.Wait()
				return m
			},
			ctx: context.Background,
		},
		{
			name:    "nil manager",
			manager: func() *Manager { return nil },
			ctx:     context.Background,
		},
		{
			name:    "canceled context",
			manager: func() *Manager { return NewManager(1) },
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.manager().Go(tt.ctx(), "noop", func(context.Context) error { return nil }) {
				t.Fatal("expected the task to be refused")
			}
		})
	}
}
