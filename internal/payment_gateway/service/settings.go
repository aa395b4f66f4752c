package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/membership-ledger/internal/config"
)

// Method is a way members pay. Each method settles into its own clearing account.
type Method struct {
	Name                  string
	ClearingAccountID     uuid.UUID
	ProcessorFeeAccountID uuid.UUID // optional, required for charges carrying a fee
	IsAutomated           bool
	IsRecurring           bool
}

// Settings names the accounts the adapter posts to
type Settings struct {
	DefaultMethod      string
	Methods            map[string]Method
	FeeIncomeAccountID uuid.UUID // optional, required for purpose=fee charges
	Currency           string
}

// Method resolves a payment method by name. The empty name is the default method.
func (s Settings) Method(name string) (Method, bool) {
	if name == "" {
		name = s.DefaultMethod
	}
	m, ok := s.Methods[strings.ToLower(name)]
	return m, ok
}

// SettingsFromConfig parses the payments section. The clearing account is mandatory.
func SettingsFromConfig(cfg *config.PaymentsConfig) (Settings, error) {
	if cfg.ClearingAccountID == "" {
		return Settings{}, errors.New("PAYMENTS_CLEARING_ACCOUNT_ID is required to apply payment events")
	}

	defaultMethod := cfg.DefaultMethod
	if defaultMethod == "" {
		defaultMethod = "card"
	}
	s := Settings{
		DefaultMethod: defaultMethod,
		Methods:       make(map[string]Method, len(cfg.Methods)+1),
		Currency:      strings.ToLower(cfg.Currency),
	}

	def, err := methodFromConfig(config.PaymentMethodConfig{
		Name:                  defaultMethod,
		ClearingAccountID:     cfg.ClearingAccountID,
		ProcessorFeeAccountID: cfg.ProcessorFeeAccountID,
		IsAutomated:           cfg.DefaultMethodAutomated,
		IsRecurring:           cfg.DefaultMethodRecurring,
	})
	if err != nil {
		return Settings{}, err
	}
	s.Methods[def.Name] = def

	for _, mc := range cfg.Methods {
		m, err := methodFromConfig(mc)
		if err != nil {
			return Settings{}, err
		}
		if _, dup := s.Methods[m.Name]; dup {
			return Settings{}, fmt.Errorf("payment method %s is configured twice", m.Name)
		}
		s.Methods[m.Name] = m
	}

	if s.FeeIncomeAccountID, err = optionalID(cfg.FeeIncomeAccountID); err != nil {
		return Settings{}, fmt.Errorf("invalid fee income account id: %w", err)
	}
	return s, nil
}

func methodFromConfig(mc config.PaymentMethodConfig) (Method, error) {
	m := Method{
		Name:        strings.ToLower(mc.Name),
		IsAutomated: mc.IsAutomated,
		IsRecurring: mc.IsRecurring,
	}
	var err error
	if m.ClearingAccountID, err = uuid.Parse(mc.ClearingAccountID); err != nil {
		return Method{}, fmt.Errorf("invalid clearing account id for payment method %s: %w", m.Name, err)
	}
	if m.ProcessorFeeAccountID, err = optionalID(mc.ProcessorFeeAccountID); err != nil {
		return Method{}, fmt.Errorf("invalid processor fee account id for payment method %s: %w", m.Name, err)
	}
	return m, nil
}

func optionalID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
