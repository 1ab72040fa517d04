package model

// NotificationKind tags a Notification variant.
type NotificationKind string

const (
	KindTxPending NotificationKind = "tx"
	KindTxSuccess NotificationKind = "success"
	KindTxError   NotificationKind = "error"
)

// Notification is one of TxPending, TxSuccess or TxError.
type Notification interface {
	Kind() NotificationKind
	NotificationID() string
	sealed()
}

// TxPending is shown while a submitted transaction awaits confirmation.
type TxPending struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Hash        string `json:"hash"`
	ExplorerURL string `json:"explorer_url,omitempty"`
}

// TxSuccess is shown after confirmation.
type TxSuccess struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Hash    string `json:"hash,omitempty"`
}

// TxError is shown when submission or confirmation fails.
type TxError struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (TxPending) Kind() NotificationKind { return KindTxPending }
func (TxSuccess) Kind() NotificationKind { return KindTxSuccess }
func (TxError) Kind() NotificationKind   { return KindTxError }

func (n TxPending) NotificationID() string { return n.ID }
func (n TxSuccess) NotificationID() string { return n.ID }
func (n TxError) NotificationID() string   { return n.ID }

func (TxPending) sealed() {}
func (TxSuccess) sealed() {}
func (TxError) sealed()   {}
