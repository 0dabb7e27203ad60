package inbound

import (
	"github.com/shandysiswandi/otpkeep/internal/authenticator/usecase"
	"github.com/shandysiswandi/otpkeep/internal/pkg/goerror"
	"github.com/shandysiswandi/otpkeep/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for account and code workflows.
type HTTPEndpoint struct {
	uc uc
}

// Accounts lists enrolled accounts in display order.
func (h *HTTPEndpoint) Accounts(r *router.Request) (any, error) {
	out, err := h.uc.Accounts(r.Context())
	if err != nil {
		return nil, err
	}

	return newAccountsResponse(out), nil
}

// Enroll stores the account described by a scanned otpauth payload.
// Payloads that are not TOTP enrollment URIs are reported as ignored.
func (h *HTTPEndpoint) Enroll(r *router.Request) (any, error) {
	var req EnrollRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	res, err := h.uc.Enroll(r.Context(), usecase.EnrollInput{URI: req.URI})
	if err != nil {
		return nil, err
	}

	resp := EnrollResponse{
		Status: string(res.Status),
		Reason: res.Reason,
		Index:  res.Index,
	}
	if res.Account != nil {
		acc := newAccountResponse(*res.Account, res.Index, res.Index)
		resp.Account = &acc
	}

	return resp, nil
}

func (h *HTTPEndpoint) Select(r *router.Request) (any, error) {
	var req SelectRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}
	if req.Index == nil {
		return nil, goerror.NewInvalidInput(nil, "index", "index is a required field")
	}

	out, err := h.uc.Select(r.Context(), usecase.SelectInput{Index: *req.Index})
	if err != nil {
		return nil, err
	}

	return SelectResponse{Selected: out.Selected}, nil
}

func (h *HTTPEndpoint) Delete(r *router.Request) (any, error) {
	index, err := r.GetParamInt("index")
	if err != nil {
		return nil, err
	}

	out, err := h.uc.Delete(r.Context(), usecase.DeleteInput{Index: index})
	if err != nil {
		return nil, err
	}

	return DeleteResponse{
		Deleted:  newAccountResponse(out.Account, index, -1),
		Selected: out.Selected,
	}, nil
}

// CurrentCode reports the code of the selected account with its timing.
func (h *HTTPEndpoint) CurrentCode(r *router.Request) (any, error) {
	out, err := h.uc.CurrentCode(r.Context())
	if err != nil {
		return nil, err
	}

	return newCodeResponse(*out), nil
}
