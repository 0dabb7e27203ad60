package usecase

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/engine"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/registry"
	"github.com/shandysiswandi/otpkeep/internal/pkg/clock"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
	"github.com/shandysiswandi/otpkeep/internal/pkg/instrument"
	"github.com/shandysiswandi/otpkeep/internal/pkg/validator"
)

const fixedRef = "0192f0b4-7a8e-7000-8000-0000000000aa"

type fakeSecrets struct {
	mu       sync.Mutex
	data     map[string][]byte
	putErr   error
	deleted  []string
	putCalls int
}

func newFakeSecrets() *fakeSecrets {
	return &fakeSecrets{data: map[string][]byte{}}
}

func (f *fakeSecrets) Put(_ context.Context, ref string, secret []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putCalls++
	if f.putErr != nil {
		return f.putErr
	}
	f.data[ref] = bytes.Clone(secret)
	return nil
}

func (f *fakeSecrets) Delete(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, ref)
	delete(f.data, ref)
	return nil
}

type fakeAccounts struct {
	accounts  []entity.Account
	selected  int
	appendErr error
	removeErr error
}

func newFakeAccounts(n int) *fakeAccounts {
	f := &fakeAccounts{selected: entity.NoSelection}
	for i := range n {
		f.accounts = append(f.accounts, entity.Account{
			Algorithm:   "HmacSHA1",
			PeriodMS:    30000,
			Digits:      6,
			AccountName: "user",
			SecretRef:   "0192f0b4-7a8e-7000-8000-00000000000" + string(rune('0'+i)),
		})
		f.selected = i
	}
	return f
}

func (f *fakeAccounts) Accounts() []entity.Account { return slices.Clone(f.accounts) }

func (f *fakeAccounts) Selected() (entity.Account, int, bool) {
	if f.selected < 0 || f.selected >= len(f.accounts) {
		return entity.Account{}, entity.NoSelection, false
	}
	return f.accounts[f.selected], f.selected, true
}

func (f *fakeAccounts) Append(_ context.Context, acc entity.Account) (int, error) {
	if f.appendErr != nil {
		return entity.NoSelection, f.appendErr
	}
	f.accounts = append(f.accounts, acc)
	f.selected = len(f.accounts) - 1
	return f.selected, nil
}

func (f *fakeAccounts) Remove(_ context.Context, index int) (entity.Account, error) {
	if f.removeErr != nil {
		return entity.Account{}, f.removeErr
	}
	if index < 0 || index >= len(f.accounts) {
		return entity.Account{}, registry.ErrIndexOutOfRange
	}
	acc := f.accounts[index]
	f.accounts = slices.Delete(f.accounts, index, index+1)
	if f.selected >= len(f.accounts) {
		f.selected = len(f.accounts) - 1
	}
	return acc, nil
}

func (f *fakeAccounts) Select(_ context.Context, index int) (int, error) {
	switch {
	case len(f.accounts) == 0 || index < 0:
		f.selected = entity.NoSelection
	case index >= len(f.accounts):
		f.selected = len(f.accounts) - 1
	default:
		f.selected = index
	}
	return f.selected, nil
}

type fakeEngine struct {
	state engine.State
	ch    chan engine.State
}

func (f *fakeEngine) State() engine.State { return f.state }

func (f *fakeEngine) Subscribe(ctx context.Context) <-chan engine.State {
	context.AfterFunc(ctx, func() { close(f.ch) })
	return f.ch
}

type fakeEvents struct {
	enrolled []AccountEvent
	removed  []AccountEvent
	selected []SelectionEvent
	err      error
}

func (f *fakeEvents) PublishAccountEnrolled(_ context.Context, msg AccountEvent) error {
	f.enrolled = append(f.enrolled, msg)
	return f.err
}

func (f *fakeEvents) PublishAccountRemoved(_ context.Context, msg AccountEvent) error {
	f.removed = append(f.removed, msg)
	return f.err
}

func (f *fakeEvents) PublishSelectionChanged(_ context.Context, msg SelectionEvent) error {
	f.selected = append(f.selected, msg)
	return f.err
}

type fixedUUID struct{}

func (fixedUUID) Generate() string { return fixedRef }

var testNow = time.UnixMilli(1_700_000_040_000)

func newTestUsecase(t *testing.T, secrets repoSecret, accounts repoAccount, eng codeEngine) *Usecase {
	t.Helper()

	v, err := validator.NewV10Validator()
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	return New(Dependency{
		Secrets:    secrets,
		Accounts:   accounts,
		Messaging:  &fakeEvents{},
		Engine:     eng,
		Validator:  v,
		UUID:       fixedUUID{},
		Clock:      clock.NewFixed(testNow),
		Instrument: instrument.NewNoop(),
	})
}

func eventsOf(uc *Usecase) *fakeEvents {
	return uc.events.(*fakeEvents)
}

func errorCode(t *testing.T, err error) goerror.Code {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T (%v)", err, err)
	}
	return gerr.Code()
}
