package inbound

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/usecase"
	"github.com/shandysiswandi/otpkeep/internal/pkg/router"
)

type uc interface {
	Accounts(ctx context.Context) (*usecase.AccountsOutput, error)
	Enroll(ctx context.Context, in usecase.EnrollInput) (*entity.EnrollResult, error)
	Select(ctx context.Context, in usecase.SelectInput) (*usecase.SelectOutput, error)
	Delete(ctx context.Context, in usecase.DeleteInput) (*usecase.DeleteOutput, error)

	CurrentCode(ctx context.Context) (*usecase.CodeOutput, error)
	StreamCode(ctx context.Context) <-chan usecase.CodeOutput
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.GET("/api/v1/accounts", end.Accounts)
	r.POST("/api/v1/accounts/enroll", end.Enroll)
	r.PUT("/api/v1/accounts/selection", end.Select)
	r.DELETE("/api/v1/accounts/:index", end.Delete)

	r.GET("/api/v1/code", end.CurrentCode)
	r.GETRaw("/api/v1/code/stream", http.HandlerFunc(end.StreamCode))
}
