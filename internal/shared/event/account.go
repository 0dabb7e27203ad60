package event

const AccountEnrolledDestination string = "authenticator_account_enrolled"
const AccountRemovedDestination string = "authenticator_account_removed"
const SelectionChangedDestination string = "authenticator_selection_changed"

type AccountMessage struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	AccountName string `json:"account_name"`
	Issuer      string `json:"issuer,omitempty"`
	Algorithm   string `json:"algorithm"`
	Digits      int    `json:"digits"`
	PeriodMS    int64  `json:"period_ms"`
	At          int64  `json:"at"`
}

type SelectionMessage struct {
	Selected int   `json:"selected"`
	At       int64 `json:"at"`
}
