package usecase

import (
	"context"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
)

type AccountsOutput struct {
	Accounts []entity.Account
	Selected int
}

func (s *Usecase) Accounts(ctx context.Context) (*AccountsOutput, error) {
	_, span := s.startSpan(ctx, "Accounts")
	defer span.End()

	_, selected, _ := s.accounts.Selected()

	return &AccountsOutput{
		Accounts: s.accounts.Accounts(),
		Selected: selected,
	}, nil
}
