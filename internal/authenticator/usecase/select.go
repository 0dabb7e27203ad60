package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
)

type SelectInput struct {
	Index int
}

type SelectOutput struct {
	Selected int
}

// Select changes the selected account. Out-of-range indexes are clamped: a
// negative index clears the selection, one past the end selects the last.
func (s *Usecase) Select(ctx context.Context, in SelectInput) (*SelectOutput, error) {
	ctx, span := s.startSpan(ctx, "Select")
	defer span.End()

	_, before, _ := s.accounts.Selected()

	selected, err := s.accounts.Select(ctx, in.Index)
	if err != nil {
		slog.ErrorContext(ctx, "failed to persist selection", "index", in.Index, "error", err)
		return nil, goerror.NewServer(err)
	}

	if selected != before {
		if err := s.events.PublishSelectionChanged(ctx, SelectionEvent{
			Selected: selected,
			At:       s.clock.Now(),
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish selection changed", "selected", selected, "error", err)
		}
	}

	return &SelectOutput{Selected: selected}, nil
}
