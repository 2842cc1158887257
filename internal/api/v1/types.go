package apiv1

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// SyncRequest is a batch sync call from the external member directory.
// IDs resolve known accounts; Emails look up or create accounts.
type SyncRequest struct {
	IDs    []uint   `json:"ids"`
	Emails []string `json:"emails"`
}

// SyncedAccount is what the directory needs to know about an account.
type SyncedAccount struct {
	ID        uint  `json:"id"`
	ExpiredAt int64 `json:"expired_at"`
}

// SyncResponse maps requested ids to expiration timestamps (unix seconds)
// and requested emails to their account summary.
type SyncResponse struct {
	Expirations map[string]int64         `json:"expirations"`
	Accounts    map[string]SyncedAccount `json:"accounts"`
	SyncedAt    int64                    `json:"synced_at"`
}
