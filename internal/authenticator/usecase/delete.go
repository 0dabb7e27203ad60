package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/registry"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
)

type DeleteInput struct {
	Index int `validate:"gte=0"`
}

type DeleteOutput struct {
	Account  entity.Account
	Selected int
}

// Delete removes an account and then its secret. A secret left behind by a
// failed removal is harmless: nothing references it anymore.
func (s *Usecase) Delete(ctx context.Context, in DeleteInput) (*DeleteOutput, error) {
	ctx, span := s.startSpan(ctx, "Delete")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	acc, err := s.accounts.Remove(ctx, in.Index)
	if errors.Is(err, registry.ErrIndexOutOfRange) {
		return nil, goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to remove account", "index", in.Index, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := s.secrets.Delete(ctx, acc.SecretRef); err != nil {
		slog.WarnContext(ctx, "failed to delete secret of removed account", "secret_ref", acc.SecretRef, "error", err)
	}

	if err := s.events.PublishAccountRemoved(ctx, AccountEvent{
		Index:   in.Index,
		Account: acc,
		At:      s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account removed", "index", in.Index, "error", err)
	}

	_, selected, _ := s.accounts.Selected()

	return &DeleteOutput{Account: acc, Selected: selected}, nil
}
