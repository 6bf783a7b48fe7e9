package domain

const (
	TxTypeAirdrop            = "AIRDROP"
	TxTypeP2PTransfer        = "P2P_TRANSFER"
	TxTypeContentTip         = "CONTENT_TIP"
	TxTypeRewardDistribution = "REWARD_DISTRIBUTION"
	TxTypeWithdrawal         = "WITHDRAWAL"

	TxStatusPending   = "PENDING"
	TxStatusConfirmed = "CONFIRMED"
	TxStatusFailed    = "FAILED"

	// Transfer request statuses. PENDING is the only non-terminal state.
	RequestStatusPending  = "PENDING"
	RequestStatusApproved = "APPROVED"
	RequestStatusRejected = "REJECTED"
	RequestStatusExpired  = "EXPIRED"

	ContextTypeNone = "NONE"
	ContextTypePost = "POST"
	ContextTypeReel = "REEL"

	WithdrawalStatusPending = "PENDING"
)
