package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/engine"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
)

func TestAccounts(t *testing.T) {
	uc := newTestUsecase(t, newFakeSecrets(), newFakeAccounts(3), &fakeEngine{})

	out, err := uc.Accounts(context.Background())

	if err != nil {
		t.Fatalf("accounts: %v", err)
	}
	if len(out.Accounts) != 3 || out.Selected != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
}

func TestSelectClamps(t *testing.T) {
	accounts := newFakeAccounts(3)
	uc := newTestUsecase(t, newFakeSecrets(), accounts, &fakeEngine{})

	out, err := uc.Select(context.Background(), SelectInput{Index: 10})

	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if out.Selected != 2 {
		t.Fatalf("expected clamp to 2, got %d", out.Selected)
	}
	if len(eventsOf(uc).selected) != 0 {
		t.Fatalf("unchanged selection must not publish, got %+v", eventsOf(uc).selected)
	}
}

func TestSelectPublishesChange(t *testing.T) {
	// Arrange
	uc := newTestUsecase(t, newFakeSecrets(), newFakeAccounts(3), &fakeEngine{})

	// Act
	out, err := uc.Select(context.Background(), SelectInput{Index: -1})

	// Assert
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	events := eventsOf(uc).selected
	if out.Selected != entity.NoSelection || len(events) != 1 || events[0].Selected != entity.NoSelection {
		t.Fatalf("unexpected selection %d events %+v", out.Selected, events)
	}
}

func TestDeleteRemovesAccountThenSecret(t *testing.T) {
	// Arrange
	secrets := newFakeSecrets()
	accounts := newFakeAccounts(3)
	ref := accounts.accounts[1].SecretRef
	secrets.data[ref] = []byte("s")
	uc := newTestUsecase(t, secrets, accounts, &fakeEngine{})

	// Act
	out, err := uc.Delete(context.Background(), DeleteInput{Index: 1})

	// Assert
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if out.Account.SecretRef != ref || len(accounts.accounts) != 2 {
		t.Fatalf("unexpected output %+v", out)
	}
	if _, ok := secrets.data[ref]; ok {
		t.Fatalf("expected secret deleted")
	}
	removed := eventsOf(uc).removed
	if len(removed) != 1 || removed[0].Index != 1 || removed[0].Account.SecretRef != ref {
		t.Fatalf("unexpected removed events %+v", removed)
	}
}

func TestDeleteErrors(t *testing.T) {
	secrets := newFakeSecrets()
	accounts := newFakeAccounts(1)
	uc := newTestUsecase(t, secrets, accounts, &fakeEngine{})

	if _, err := uc.Delete(context.Background(), DeleteInput{Index: 4}); errorCode(t, err) != goerror.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := uc.Delete(context.Background(), DeleteInput{Index: -1}); errorCode(t, err) != goerror.CodeInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}

	accounts.removeErr = errors.New("manifest write failed")
	if _, err := uc.Delete(context.Background(), DeleteInput{Index: 0}); errorCode(t, err) != goerror.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
	if len(secrets.deleted) != 0 {
		t.Fatalf("secret must stay when the account could not be removed")
	}
	if len(eventsOf(uc).removed) != 0 {
		t.Fatalf("failed removals must not publish")
	}
}

func TestCurrentCodeExtrapolates(t *testing.T) {
	// Arrange: state captured 100ms before the clock
	eng := &fakeEngine{state: engine.State{
		Phase:           entity.PhaseTicking,
		AccountIndex:    0,
		Code:            "123456",
		Counter:         7,
		PeriodMS:        30000,
		CounterStart:    testNow.Add(-29950 * time.Millisecond),
		TimeRemainingMS: 29850,
		ValidForMS:      150,
	}}
	uc := newTestUsecase(t, newFakeSecrets(), newFakeAccounts(1), eng)

	// Act
	out, err := uc.CurrentCode(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("current code: %v", err)
	}
	if out.Code != "123456" || out.TimeRemainingMS != 29950 || out.ValidForMS != 50 {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Progress < 0.998 || out.Progress >= 1 {
		t.Fatalf("unexpected progress %v", out.Progress)
	}
}

func TestCurrentCodeIdle(t *testing.T) {
	uc := newTestUsecase(t, newFakeSecrets(), newFakeAccounts(0), &fakeEngine{state: engine.State{Phase: entity.PhaseIdle, AccountIndex: entity.NoSelection}})

	out, err := uc.CurrentCode(context.Background())

	if err != nil {
		t.Fatalf("current code: %v", err)
	}
	if out.Phase != entity.PhaseIdle || out.Code != "" || out.Progress != 0 {
		t.Fatalf("unexpected idle output %+v", out)
	}
}

func TestStreamCode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	eng := &fakeEngine{ch: make(chan engine.State, 1)}
	eng.ch <- engine.State{Phase: entity.PhaseTicking, Code: "654321", PeriodMS: 30000, CounterStart: testNow}
	uc := newTestUsecase(t, newFakeSecrets(), newFakeAccounts(1), eng)

	stream := uc.StreamCode(ctx)
	first := <-stream
	cancel()

	if first.Code != "654321" {
		t.Fatalf("unexpected frame %+v", first)
	}
	select {
	case _, ok := <-stream:
		if ok {
			t.Fatalf("expected stream to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not close")
	}
}
