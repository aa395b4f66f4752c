package handler

// CreateAccountRequest represents a request to open a ledger account
type CreateAccountRequest struct {
	Name        string `json:"name" binding:"required"`
	AccountType string `json:"account_type" binding:"required,oneof=ASSET LIABILITY EQUITY INCOME EXPENSE asset liability equity income expense"`
}

// RenameAccountRequest represents a request to rename an account
type RenameAccountRequest struct {
	Name string `json:"name" binding:"required"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
	NormalSide  string `json:"normal_side"`
	Active      bool   `json:"active"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// BalanceResponse represents an account balance as of a date
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
	AsOf      string `json:"as_of,omitempty"`
}

// EntryListParams are the query parameters of the entries listing
type EntryListParams struct {
	Role  string `form:"role,default=EITHER" binding:"oneof=DEBIT CREDIT EITHER"`
	Limit int    `form:"limit,default=100" binding:"min=1,max=1000"`
}

// CreateEntryRequest represents a manual ledger entry. Amount is a decimal string such as "50.00".
type CreateEntryRequest struct {
	DebitAccountID    string `json:"debit_account_id" binding:"required,uuid"`
	CreditAccountID   string `json:"credit_account_id" binding:"required,uuid"`
	Amount            string `json:"amount" binding:"required"`
	EffectiveDate     string `json:"effective_date" binding:"required"`
	Description       string `json:"description"`
	ExternalReference string `json:"external_reference,omitempty"`
}

// ReverseEntryRequest represents a reversal request. Both fields are optional.
type ReverseEntryRequest struct {
	EffectiveDate string `json:"effective_date"`
	Description   string `json:"description"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID                string `json:"id"`
	DebitAccountID    string `json:"debit_account_id"`
	CreditAccountID   string `json:"credit_account_id"`
	Amount            string `json:"amount"`
	EffectiveDate     string `json:"effective_date"`
	Description       string `json:"description"`
	IsAutomated       bool   `json:"is_automated"`
	IsRecurring       bool   `json:"is_recurring"`
	ExternalReference string `json:"external_reference,omitempty"`
	ReversesEntryID   string `json:"reverses_entry_id,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// EntryListResponse represents one page of an account's entry stream
type EntryListResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// CreateLevelRequest represents a new membership level
type CreateLevelRequest struct {
	Name                  string `json:"name" binding:"required"`
	FeeAmount             string `json:"fee_amount" binding:"required"`
	BillingIntervalMonths int    `json:"billing_interval_months" binding:"required,min=1"`
	RevenueAccountID      string `json:"revenue_account_id" binding:"required,uuid"`
	HasKeyfob             bool   `json:"has_keyfob"`
	HasRoomKey            bool   `json:"has_room_key"`
	HasVoting             bool   `json:"has_voting"`
	HasPowertoolAccess    bool   `json:"has_powertool_access"`
}

// LevelResponse represents a membership level in API responses
type LevelResponse struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	FeeAmount             string `json:"fee_amount"`
	BillingIntervalMonths int    `json:"billing_interval_months"`
	RevenueAccountID      string `json:"revenue_account_id"`
	HasKeyfob             bool   `json:"has_keyfob"`
	HasRoomKey            bool   `json:"has_room_key"`
	HasVoting             bool   `json:"has_voting"`
	HasPowertoolAccess    bool   `json:"has_powertool_access"`
}

// CreateMemberRequest represents a new member. A dues account is opened unless open_account is false.
type CreateMemberRequest struct {
	Name              string `json:"name" binding:"required"`
	Email             string `json:"email" binding:"omitempty,email"`
	MembershipLevelID string `json:"membership_level_id" binding:"omitempty,uuid"`
	JoinedDate        string `json:"joined_date"`
	OpenAccount       *bool  `json:"open_account"`
}

// LinkCustomerRequest links a processor customer to a member
type LinkCustomerRequest struct {
	ExternalCustomerID string `json:"external_customer_id" binding:"required"`
}

// PrivilegesResponse represents a member's derived privileges
type PrivilegesResponse struct {
	Keyfob          bool `json:"keyfob"`
	RoomKey         bool `json:"room_key"`
	Voting          bool `json:"voting"`
	PowertoolAccess bool `json:"powertool_access"`
}

// MemberResponse represents a member with its billing standing
type MemberResponse struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email,omitempty"`
	AccountID          string             `json:"account_id,omitempty"`
	MembershipLevelID  string             `json:"membership_level_id,omitempty"`
	ExternalCustomerID string             `json:"external_customer_id,omitempty"`
	LastBilledDate     string             `json:"last_billed_date"`
	NextBillDate       string             `json:"next_bill_date,omitempty"`
	BillingUpToDate    bool               `json:"billing_up_to_date"`
	Privileges         PrivilegesResponse `json:"privileges"`
	AsOf               string             `json:"as_of,omitempty"`
}

// WebhookAcceptedResponse acknowledges an enqueued processor event
type WebhookAcceptedResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}
