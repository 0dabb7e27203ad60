package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/engine"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
)

type CodeOutput struct {
	Phase           entity.Phase
	AccountIndex    int
	Code            string
	Counter         uint64
	PeriodMS        int64
	TimeRemainingMS int64
	ValidForMS      int64
	Progress        float64
	At              time.Time
}

// CurrentCode reports the code of the selected account. Progress is
// extrapolated to now and may exceed 1.0 just after a rollover.
func (s *Usecase) CurrentCode(ctx context.Context) (*CodeOutput, error) {
	_, span := s.startSpan(ctx, "CurrentCode")
	defer span.End()

	out := s.codeOutput(s.engine.State())
	return &out, nil
}

// StreamCode streams code updates until ctx is done.
func (s *Usecase) StreamCode(ctx context.Context) <-chan CodeOutput {
	states := s.engine.Subscribe(ctx)
	out := make(chan CodeOutput, 1)

	go func() {
		defer close(out)

		for st := range states {
			select {
			case out <- s.codeOutput(st):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (s *Usecase) codeOutput(st engine.State) CodeOutput {
	now := s.clock.Now()

	out := CodeOutput{
		Phase:           st.Phase,
		AccountIndex:    st.AccountIndex,
		Code:            st.Code,
		Counter:         st.Counter,
		PeriodMS:        st.PeriodMS,
		TimeRemainingMS: st.TimeRemainingMS,
		ValidForMS:      st.ValidForMS,
		Progress:        st.ProgressAt(now),
		At:              now,
	}
	if st.Phase == entity.PhaseTicking && st.PeriodMS > 0 {
		elapsed := now.Sub(st.CounterStart).Milliseconds()
		out.TimeRemainingMS = max(elapsed, 0)
		out.ValidForMS = max(st.PeriodMS-elapsed, 0)
	}

	return out
}
