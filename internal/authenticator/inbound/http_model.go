package inbound

import (
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/entity"
	"github.com/shandysiswandi/otpkeep/internal/authenticator/usecase"
)

type AccountResponse struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	AccountName string `json:"account_name"`
	Issuer      string `json:"issuer,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
	Algorithm   string `json:"algorithm"`
	Digits      int    `json:"digits"`
	PeriodMS    int64  `json:"period_ms"`
	Selected    bool   `json:"selected"`
}

func newAccountResponse(acc entity.Account, index, selected int) AccountResponse {
	return AccountResponse{
		Index:       index,
		Label:       acc.Label(),
		AccountName: acc.AccountName,
		Issuer:      acc.Issuer,
		IconURL:     acc.IconURL,
		Algorithm:   acc.Algorithm,
		Digits:      acc.Digits,
		PeriodMS:    acc.PeriodMS,
		Selected:    index == selected,
	}
}

type AccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
	Selected int               `json:"selected"`
}

func newAccountsResponse(out *usecase.AccountsOutput) AccountsResponse {
	return AccountsResponse{
		Accounts: lo.Map(out.Accounts, func(acc entity.Account, i int) AccountResponse {
			return newAccountResponse(acc, i, out.Selected)
		}),
		Selected: out.Selected,
	}
}

type EnrollRequest struct {
	URI string `json:"uri"`
}

type EnrollResponse struct {
	Status  string           `json:"status"`
	Reason  string           `json:"reason,omitempty"`
	Index   int              `json:"index"`
	Account *AccountResponse `json:"account,omitempty"`
}

func (r EnrollResponse) StatusCode() int {
	if r.Status == string(entity.EnrollStatusEnrolled) {
		return http.StatusCreated
	}
	return http.StatusOK
}

func (r EnrollResponse) Message() string {
	if r.Status == string(entity.EnrollStatusEnrolled) {
		return "Account enrolled"
	}
	return "Payload ignored"
}

type SelectRequest struct {
	Index *int `json:"index"`
}

type SelectResponse struct {
	Selected int `json:"selected"`
}

func (SelectResponse) Message() string {
	return "Selection updated"
}

type DeleteResponse struct {
	Deleted  AccountResponse `json:"deleted"`
	Selected int             `json:"selected"`
}

func (DeleteResponse) Message() string {
	return "Account deleted"
}

type CodeResponse struct {
	Phase           string    `json:"phase"`
	AccountIndex    int       `json:"account_index"`
	Code            string    `json:"code,omitempty"`
	Counter         uint64    `json:"counter"`
	PeriodMS        int64     `json:"period_ms"`
	TimeRemainingMS int64     `json:"time_remaining_ms"`
	ValidForMS      int64     `json:"valid_for_ms"`
	Progress        float64   `json:"progress"`
	At              time.Time `json:"at"`
}

func newCodeResponse(out usecase.CodeOutput) CodeResponse {
	return CodeResponse{
		Phase:           string(out.Phase),
		AccountIndex:    out.AccountIndex,
		Code:            out.Code,
		Counter:         out.Counter,
		PeriodMS:        out.PeriodMS,
		TimeRemainingMS: out.TimeRemainingMS,
		ValidForMS:      out.ValidForMS,
		Progress:        out.Progress,
		At:              out.At,
	}
}
