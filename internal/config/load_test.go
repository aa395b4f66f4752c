package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir := t.TempDir()

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err := os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestApp"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"
	testClearing := "5f0b7a63-4c3e-4c56-9d55-2f3f3c4cbd10"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\nPAYMENTS_CLEARING_ACCOUNT_ID=%s\nPAYMENTS_CURRENCY=EUR\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers, testClearing,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)
	assert.Equal(t, testClearing, cfg.Payments.ClearingAccountID)
	assert.Equal(t, "eur", cfg.Payments.Currency)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "payment_events", cfg.Kafka.PaymentEventsTopic)
	assert.Equal(t, "ledger_events", cfg.Kafka.LedgerEventsTopic)
	assert.Equal(t, "payment_events_dlq", cfg.Kafka.DLQTopic)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 10, cfg.WorkerPool.Size)
	assert.True(t, cfg.Ledger.InvariantCheck)
	assert.Equal(t, 5*time.Minute, cfg.Payments.WebhookTolerance)

	cfgWithName, err := LoadConfigWithName("configs/test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestLoadConfig_PaymentMethods(t *testing.T) {
	tempDir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(tempDir, "configs"), 0755))

	sepaClearing := "0b6c1f44-8f0e-4a52-9d0e-3a3d6d0c1a01"
	envContent := "PAYMENTS_METHODS=sepa, Cheque\n" +
		"PAYMENTS_METHOD_SEPA_CLEARING_ACCOUNT_ID=" + sepaClearing + "\n" +
		"PAYMENTS_METHOD_SEPA_RECURRING=true\n" +
		"PAYMENTS_METHOD_CHEQUE_CLEARING_ACCOUNT_ID=" + sepaClearing + "\n" +
		"PAYMENTS_METHOD_CHEQUE_AUTOMATED=false\n"
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, "configs", "test_methods.env"), []byte(envContent), 0644))

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()
	require.NoError(t, os.Chdir(tempDir))

	cfg, err := LoadConfig("test_methods")
	require.NoError(t, err)

	assert.Equal(t, "card", cfg.Payments.DefaultMethod)
	assert.True(t, cfg.Payments.DefaultMethodAutomated)
	assert.False(t, cfg.Payments.DefaultMethodRecurring)
	assert.Equal(t, []PaymentMethodConfig{
		{Name: "sepa", ClearingAccountID: sepaClearing, IsAutomated: true, IsRecurring: true},
		{Name: "cheque", ClearingAccountID: sepaClearing, IsAutomated: false, IsRecurring: false},
	}, cfg.Payments.Methods)
}

func defaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return buildConfig(v)
}

func TestConfig_Validate_HappyPath(t *testing.T) {
	err := defaultConfig().validate()
	assert.NoError(t, err, "Default config should be valid")
}

func TestConfig_Validate_CollectsErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	cfg.Kafka.PaymentEventsTopic = ""
	cfg.Payments.ClearingAccountID = "not-a-uuid"
	cfg.Payments.Currency = "dollars"
	cfg.Payments.Methods = []PaymentMethodConfig{
		{Name: "sepa", ClearingAccountID: "", ProcessorFeeAccountID: "nope"},
		{Name: "Wire Transfer"},
		{Name: "card", ClearingAccountID: "0b6c1f44-8f0e-4a52-9d0e-3a3d6d0c1a01"},
	}

	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_PORT must be greater than 0")
	assert.Contains(t, err.Error(), "KAFKA_PAYMENT_EVENTS_TOPIC is required")
	assert.Contains(t, err.Error(), "PAYMENTS_CLEARING_ACCOUNT_ID must be a valid UUID")
	assert.Contains(t, err.Error(), "PAYMENTS_CURRENCY must be a three letter ISO code")
	assert.Contains(t, err.Error(), "PAYMENTS_METHOD_SEPA_CLEARING_ACCOUNT_ID must be a valid UUID")
	assert.Contains(t, err.Error(), "PAYMENTS_METHOD_SEPA_PROCESSOR_FEE_ACCOUNT_ID must be a valid UUID")
	assert.Contains(t, err.Error(), "PAYMENTS_METHODS entry Wire Transfer must be lowercase")
	assert.Contains(t, err.Error(), "PAYMENTS_METHODS must not repeat the default method card")
}
