package member

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyName              = errors.New("member name cannot be empty")
	ErrMemberHasNoAccount     = errors.New("member has no dues account")
	ErrMemberHasNoLevel       = errors.New("member has no membership level")
	ErrInvalidMembershipLevel = errors.New("membership level is invalid")
	ErrBillingDateRegression  = errors.New("last billed date cannot move backwards")
)

// MembershipLevel sets the dues and privileges of its members
type MembershipLevel struct {
	ID                    uuid.UUID     `json:"id"`
	Name                  string        `json:"name"`
	FeeAmount             shared.Amount `json:"fee_amount"`
	BillingIntervalMonths int           `json:"billing_interval_months"`
	RevenueAccountID      uuid.UUID     `json:"revenue_account_id"`
	HasKeyfob             bool          `json:"has_keyfob"`
	HasRoomKey            bool          `json:"has_room_key"`
	HasVoting             bool          `json:"has_voting"`
	HasPowertoolAccess    bool          `json:"has_powertool_access"`
	CreatedAt             time.Time     `json:"created_at"`
}

// Validate checks the level can drive billing
func (l *MembershipLevel) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return errors.Join(ErrInvalidMembershipLevel, errors.New("name is required"))
	}
	if l.BillingIntervalMonths < 1 {
		return errors.Join(ErrInvalidMembershipLevel, errors.New("billing interval must be at least one month"))
	}
	if !l.FeeAmount.IsPositive() {
		return errors.Join(ErrInvalidMembershipLevel, errors.New("fee must be greater than zero"))
	}
	if l.RevenueAccountID == uuid.Nil {
		return errors.Join(ErrInvalidMembershipLevel, errors.New("revenue account is required"))
	}
	return nil
}

// Privileges are derived from the level and the member's billing standing, never stored
type Privileges struct {
	Keyfob          bool `json:"keyfob"`
	RoomKey         bool `json:"room_key"`
	Voting          bool `json:"voting"`
	PowertoolAccess bool `json:"powertool_access"`
}

// Member is the billing-facing view of an organization member
type Member struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	Email              string     `json:"email"`
	AccountID          *uuid.UUID `json:"account_id,omitempty"`
	MembershipLevelID  *uuid.UUID `json:"membership_level_id,omitempty"`
	ExternalCustomerID string     `json:"external_customer_id,omitempty"`
	LastBilledDate     time.Time  `json:"last_billed_date"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewMember creates a member whose first cycle starts at joined
func NewMember(name, email string, accountID, levelID *uuid.UUID, joined time.Time, now time.Time) (*Member, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	return &Member{
		ID:                uuid.New(),
		Name:              name,
		Email:             strings.TrimSpace(email),
		AccountID:         accountID,
		MembershipLevelID: levelID,
		LastBilledDate:    shared.DateOf(joined),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// NextBillDate is last_billed_date plus one interval. ok is false without a level.
func (m *Member) NextBillDate(level *MembershipLevel) (time.Time, bool) {
	if level == nil || m.MembershipLevelID == nil || level.BillingIntervalMonths < 1 {
		return time.Time{}, false
	}
	return AddMonths(m.LastBilledDate, level.BillingIntervalMonths), true
}

// BillingUpToDate reports whether the next bill falls after asOf.
func (m *Member) BillingUpToDate(level *MembershipLevel, asOf time.Time) bool {
	next, ok := m.NextBillDate(level)
	if !ok {
		return false
	}
	return next.After(shared.DateOf(asOf))
}

// Privileges grants the level's flags only while billing is up to date.
func (m *Member) Privileges(level *MembershipLevel, asOf time.Time) Privileges {
	if !m.BillingUpToDate(level, asOf) {
		return Privileges{}
	}
	return Privileges{
		Keyfob:          level.HasKeyfob,
		RoomKey:         level.HasRoomKey,
		Voting:          level.HasVoting,
		PowertoolAccess: level.HasPowertoolAccess,
	}
}

// DueCycles lists every cycle date after last_billed_date that is on or before asOf.
// Each cycle is computed from the previous one, so an end-of-month clamp carries forward.
func (m *Member) DueCycles(level *MembershipLevel, asOf time.Time) []time.Time {
	if level == nil || level.BillingIntervalMonths < 1 {
		return nil
	}
	cutoff := shared.DateOf(asOf)

	var cycles []time.Time
	for next := AddMonths(m.LastBilledDate, level.BillingIntervalMonths); !next.After(cutoff); next = AddMonths(next, level.BillingIntervalMonths) {
		cycles = append(cycles, next)
	}
	return cycles
}

// AdvanceLastBilled moves the billing anchor forward
func (m *Member) AdvanceLastBilled(to time.Time, now time.Time) error {
	to = shared.DateOf(to)
	if to.Before(m.LastBilledDate) {
		return ErrBillingDateRegression
	}
	m.LastBilledDate = to
	m.UpdatedAt = now
	return nil
}
