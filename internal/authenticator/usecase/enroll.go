package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/registry"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
	"github.com/shandysiswandi/otpkeep/internal/pkg/otp"
)

type EnrollInput struct {
	URI string `validate:"required,max=4096"`
}

// Enroll turns a scanned payload into a stored, selected account. Payloads
// that are not TOTP enrollment URIs, or are malformed, are ignored without
// storing anything.
func (s *Usecase) Enroll(ctx context.Context, in EnrollInput) (*entity.EnrollResult, error) {
	ctx, span := s.startSpan(ctx, "Enroll")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	key, err := otp.ParseKeyURI(in.URI)
	if errors.Is(err, otp.ErrNotOTPURI) {
		return ignored("payload is not an otpauth totp uri"), nil
	}
	if err != nil {
		slog.InfoContext(ctx, "ignoring malformed enrollment payload", "reason", err.Error())
		return ignored(err.Error()), nil
	}

	if _, err := otp.LookupAlgorithm(key.Algorithm); err != nil {
		slog.WarnContext(ctx, "enrollment rejected", "algorithm", key.Algorithm, "error", err)
		return nil, goerror.NewBusinessWrap(err, "Unsupported algorithm "+key.Algorithm, goerror.CodeInvalidInput)
	}

	secret, err := otp.DecodeSecret(key.Secret)
	if err != nil {
		slog.InfoContext(ctx, "ignoring malformed enrollment payload", "reason", err.Error())
		return ignored(err.Error()), nil
	}
	defer clear(secret)

	acc := entity.Account{
		Algorithm:   key.Algorithm,
		PeriodMS:    key.Period.Milliseconds(),
		Digits:      key.Digits,
		AccountName: key.AccountName,
		Issuer:      key.Issuer,
		IconURL:     iconURL(key.Image),
		SecretRef:   s.uuid.Generate(),
	}
	if err := s.validator.Validate(acc); err != nil {
		slog.InfoContext(ctx, "ignoring enrollment payload with invalid account", "error", err)
		return ignored("invalid account: " + err.Error()), nil
	}

	if err := s.secrets.Put(ctx, acc.SecretRef, secret); err != nil {
		slog.ErrorContext(ctx, "failed to store secret", "secret_ref", acc.SecretRef, "error", err)
		return nil, goerror.NewUnavailable(err, "Secret store unavailable")
	}

	index, err := s.accounts.Append(ctx, acc)
	if err != nil {
		slog.ErrorContext(ctx, "failed to append account", "secret_ref", acc.SecretRef, "error", err)
		if delErr := s.secrets.Delete(ctx, acc.SecretRef); delErr != nil {
			slog.WarnContext(ctx, "failed to remove secret of unregistered account", "secret_ref", acc.SecretRef, "error", delErr)
		}
		if errors.Is(err, registry.ErrManifestNotPreserved) {
			return nil, goerror.NewUnavailable(err, "Account manifest could not be preserved")
		}
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "account enrolled", "index", index, "issuer", acc.Issuer, "algorithm", acc.Algorithm)

	if err := s.events.PublishAccountEnrolled(ctx, AccountEvent{
		Index:   index,
		Account: acc,
		At:      s.clock.Now(),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish account enrolled", "index", index, "error", err)
	}

	return &entity.EnrollResult{
		Status:  entity.EnrollStatusEnrolled,
		Index:   index,
		Account: &acc,
	}, nil
}

func ignored(reason string) *entity.EnrollResult {
	return &entity.EnrollResult{
		Status: entity.EnrollStatusIgnored,
		Reason: reason,
		Index:  entity.NoSelection,
	}
}

// iconURL keeps image only when it is an absolute http(s) URL.
func iconURL(image string) string {
	if image == "" {
		return ""
	}

	u, err := url.Parse(image)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return image
}
