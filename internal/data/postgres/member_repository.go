package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/membership-ledger/internal/platform/persistence"
)

const externalCustomerConstraint = "members_external_customer_id_key"

const memberColumns = `id, name, email, account_id, membership_level_id, COALESCE(external_customer_id, ''),
		last_billed_date, created_at, updated_at`

const levelColumns = `id, name, fee_amount, billing_interval_months, revenue_account_id,
		has_keyfob, has_room_key, has_voting, has_powertool_access, created_at`

// MemberRepository implements member.Repository for PostgreSQL
type MemberRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewMemberRepository(logger *slog.Logger, db *persistence.PostgresDB) member.Repository {
	return &MemberRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *MemberRepository) WithTx(tx pgx.Tx) *MemberRepository {
	return &MemberRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *MemberRepository) Create(ctx context.Context, m *member.Member) error {
	query := `
		INSERT INTO members (id, name, email, account_id, membership_level_id, external_customer_id,
			last_billed_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		m.ID,
		m.Name,
		m.Email,
		m.AccountID,
		m.MembershipLevelID,
		m.ExternalCustomerID,
		m.LastBilledDate,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err, externalCustomerConstraint) {
			return member.ErrDuplicateCustomer{CustomerID: m.ExternalCustomerID}
		}
		r.logger.Error("Failed to create member", "id", m.ID.String(), "error", err)
		return fmt.Errorf("failed to create member: %w", err)
	}

	return nil
}

func (r *MemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1
	`
	return r.getOne(ctx, query, member.ErrMemberNotFound{MemberID: id}, id)
}

func (r *MemberRepository) GetByExternalCustomerID(ctx context.Context, customerID string) (*member.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE external_customer_id = $1
	`
	return r.getOne(ctx, query, member.ErrMemberNotFound{CustomerID: customerID}, customerID)
}

// LockForUpdate holds the member row until the surrounding transaction ends,
// so two billing runs cannot bill the same cycle concurrently.
func (r *MemberRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*member.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE id = $1
		FOR UPDATE
	`
	return r.getOne(ctx, query, member.ErrMemberNotFound{MemberID: id}, id)
}

func (r *MemberRepository) getOne(ctx context.Context, query string, notFound error, arg interface{}) (*member.Member, error) {
	var m member.Member
	err := r.querier.QueryRow(ctx, query, arg).Scan(
		&m.ID,
		&m.Name,
		&m.Email,
		&m.AccountID,
		&m.MembershipLevelID,
		&m.ExternalCustomerID,
		&m.LastBilledDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		r.logger.Error("Failed to get member", "key", arg, "error", err)
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &m, nil
}

// ListDue selects members whose next cycle date is on or before asOf.
// Members without an account are included so billing can report them.
func (r *MemberRepository) ListDue(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT m.id
		FROM members m
		JOIN membership_levels l ON l.id = m.membership_level_id
		WHERE (m.last_billed_date + make_interval(months => l.billing_interval_months))::DATE <= $1
		ORDER BY m.id
	`

	rows, err := r.querier.Query(ctx, query, shared.DateOf(asOf))
	if err != nil {
		r.logger.Error("Failed to list due members", "as_of", shared.FormatDate(asOf), "error", err)
		return nil, fmt.Errorf("failed to list due members: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			r.logger.Error("Failed to scan due member", "error", err)
			return nil, fmt.Errorf("failed to scan due member: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating due members", "error", err)
		return nil, fmt.Errorf("error iterating due members: %w", err)
	}

	return ids, nil
}

// UpdateLastBilled only moves the anchor forward
func (r *MemberRepository) UpdateLastBilled(ctx context.Context, id uuid.UUID, lastBilled time.Time) error {
	query := `
		UPDATE members
		SET last_billed_date = $1, updated_at = $2
		WHERE id = $3 AND last_billed_date <= $1
	`

	result, err := r.querier.Exec(ctx, query, shared.DateOf(lastBilled), time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update last billed date", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update last billed date: %w", err)
	}

	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return member.ErrBillingDateRegression
	}

	return nil
}

func (r *MemberRepository) SetExternalCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	query := `
		UPDATE members
		SET external_customer_id = NULLIF($1, ''), updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, customerID, time.Now().UTC(), id)
	if err != nil {
		if persistence.IsUniqueViolation(err, externalCustomerConstraint) {
			return member.ErrDuplicateCustomer{CustomerID: customerID}
		}
		r.logger.Error("Failed to link processor customer", "id", id.String(), "customer_id", customerID, "error", err)
		return fmt.Errorf("failed to link processor customer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return member.ErrMemberNotFound{MemberID: id}
	}

	return nil
}

func (r *MemberRepository) CreateLevel(ctx context.Context, level *member.MembershipLevel) error {
	query := `
		INSERT INTO membership_levels (id, name, fee_amount, billing_interval_months, revenue_account_id,
			has_keyfob, has_room_key, has_voting, has_powertool_access, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		level.ID,
		level.Name,
		level.FeeAmount,
		level.BillingIntervalMonths,
		level.RevenueAccountID,
		level.HasKeyfob,
		level.HasRoomKey,
		level.HasVoting,
		level.HasPowertoolAccess,
		level.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create membership level", "id", level.ID.String(), "error", err)
		return fmt.Errorf("failed to create membership level: %w", err)
	}

	return nil
}

func (r *MemberRepository) GetLevel(ctx context.Context, id uuid.UUID) (*member.MembershipLevel, error) {
	query := `
		SELECT ` + levelColumns + `
		FROM membership_levels
		WHERE id = $1
	`

	var l member.MembershipLevel
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&l.ID,
		&l.Name,
		&l.FeeAmount,
		&l.BillingIntervalMonths,
		&l.RevenueAccountID,
		&l.HasKeyfob,
		&l.HasRoomKey,
		&l.HasVoting,
		&l.HasPowertoolAccess,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrLevelNotFound{LevelID: id}
		}
		r.logger.Error("Failed to get membership level", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get membership level: %w", err)
	}

	return &l, nil
}
