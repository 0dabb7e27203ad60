package registry

import (
	"context"
	"fmt"
	"slices"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
)

// Save writes the current state to the store.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.persist(ctx, r.snap.Load())
}

// Append adds acc at the end of the list, selects it and returns its index.
func (r *Registry) Append(ctx context.Context, acc entity.Account) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	accounts := append(slices.Clone(cur.Accounts), acc)
	next := &Snapshot{Accounts: accounts, Selected: len(accounts) - 1}

	if err := r.commit(ctx, next); err != nil {
		return entity.NoSelection, err
	}
	return next.Selected, nil
}

// Remove deletes the account at index and returns it. When the selected
// account is removed, the account that takes its position becomes selected.
func (r *Registry) Remove(ctx context.Context, index int) (entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	if index < 0 || index >= len(cur.Accounts) {
		return entity.Account{}, ErrIndexOutOfRange
	}

	removed := cur.Accounts[index]
	accounts := slices.Delete(slices.Clone(cur.Accounts), index, index+1)

	selected := cur.Selected
	if selected > index {
		selected--
	}
	next := &Snapshot{Accounts: accounts, Selected: clampSelection(selected, len(accounts))}

	if err := r.commit(ctx, next); err != nil {
		return entity.Account{}, err
	}
	return removed, nil
}

// Select changes the selection and returns the index actually selected after
// clamping.
func (r *Registry) Select(ctx context.Context, index int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	selected := clampSelection(index, len(cur.Accounts))
	if selected == cur.Selected {
		return selected, nil
	}

	if err := r.commit(ctx, &Snapshot{Accounts: cur.Accounts, Selected: selected}); err != nil {
		return cur.Selected, err
	}
	return selected, nil
}

// commit persists next and only then makes it visible.
func (r *Registry) commit(ctx context.Context, next *Snapshot) error {
	if err := r.persist(ctx, next); err != nil {
		return err
	}

	r.snap.Store(next)
	r.notify()
	return nil
}

// persist writes s. It first retries the quarantine copy of a manifest that
// failed to load, and refuses to overwrite it while that copy is missing.
func (r *Registry) persist(ctx context.Context, s *Snapshot) error {
	if err := r.preserve(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrManifestNotPreserved, err)
	}

	data, err := encodeManifest(s)
	if err != nil {
		return err
	}
	defer clear(data)

	return r.store.WriteManifest(ctx, data)
}
