package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/membership-ledger/internal/api_gateway/service"
	"github.com/membership-ledger/internal/domain/account"
	"github.com/membership-ledger/internal/domain/ledger"
	"github.com/membership-ledger/internal/domain/member"
	"github.com/membership-ledger/internal/domain/payment"
	"github.com/membership-ledger/internal/domain/shared"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) CreateAccount(ctx context.Context, name string, accountType account.Type) (*account.LedgerAccount, error) {
	args := m.Called(ctx, name, accountType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.LedgerAccount), args.Error(1)
}

func (m *MockAccountService) GetAccountByID(ctx context.Context, id uuid.UUID) (*account.LedgerAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.LedgerAccount), args.Error(1)
}

func (m *MockAccountService) RenameAccount(ctx context.Context, id uuid.UUID, name string) (*account.LedgerAccount, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.LedgerAccount), args.Error(1)
}

func (m *MockAccountService) DeactivateAccount(ctx context.Context, id uuid.UUID) (*account.LedgerAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.LedgerAccount), args.Error(1)
}

func (m *MockAccountService) GetBalance(ctx context.Context, id uuid.UUID, asOf *time.Time) (shared.Amount, error) {
	args := m.Called(ctx, id, asOf)
	return args.Get(0).(shared.Amount), args.Error(1)
}

func (m *MockAccountService) ListEntries(ctx context.Context, id uuid.UUID, role ledger.Role, limit int) ([]*ledger.Entry, error) {
	args := m.Called(ctx, id, role, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

type MockEntryService struct {
	mock.Mock
}

func (m *MockEntryService) PostManualEntry(ctx context.Context, posting ledger.Posting) (*ledger.Entry, error) {
	args := m.Called(ctx, posting)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockEntryService) ReverseEntry(ctx context.Context, entryID uuid.UUID, effectiveDate time.Time, description string) (*ledger.Entry, error) {
	args := m.Called(ctx, entryID, effectiveDate, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockEntryService) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) CreateLevel(ctx context.Context, level *member.MembershipLevel) (*member.MembershipLevel, error) {
	args := m.Called(ctx, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.MembershipLevel), args.Error(1)
}

func (m *MockMemberService) CreateMember(ctx context.Context, params service.CreateMemberParams) (*member.Member, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockMemberService) GetMemberStatus(ctx context.Context, id uuid.UUID, asOf time.Time) (*service.MemberStatus, error) {
	args := m.Called(ctx, id, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MemberStatus), args.Error(1)
}

func (m *MockMemberService) LinkCustomer(ctx context.Context, id uuid.UUID, customerID string) (*member.Member, error) {
	args := m.Called(ctx, id, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) AcceptEvent(ctx context.Context, payload []byte, signature string) (*payment.Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

var (
	_ service.AccountService = (*MockAccountService)(nil)
	_ service.EntryService   = (*MockEntryService)(nil)
	_ service.MemberService  = (*MockMemberService)(nil)
	_ service.WebhookService = (*MockWebhookService)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the envelope's data field into out and returns the envelope
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) Response {
	t.Helper()
	var envelope struct {
		Data          json.RawMessage `json:"data"`
		Error         *APIError       `json:"error"`
		CorrelationID string          `json:"correlation_id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	if out != nil {
		require.NotEmpty(t, envelope.Data, "'data' field should not be empty")
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return Response{Error: envelope.Error, CorrelationID: envelope.CorrelationID}
}
