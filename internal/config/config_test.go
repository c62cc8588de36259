package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/marketplace-payments/internal/bus"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/payments")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, bus.DriverRabbitMQ, cfg.BusDriver)
	assert.Equal(t, "marketplace.events", cfg.RabbitMQExchange)
	assert.Equal(t, 5*time.Minute, cfg.StripeSignatureTolerance)
	assert.Equal(t, 3*time.Second, cfg.ReceiptLookupTimeout)
	assert.Equal(t, "orderId", cfg.OrderMetadataKey)
	assert.Equal(t, 720*time.Hour, cfg.IdempotencyRetention)
	assert.Empty(t, cfg.StripeWebhookSecret)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/payments")
	t.Setenv("BUS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("STRIPE_SIGNATURE_TOLERANCE", "90s")
	t.Setenv("ORDER_METADATA_KEY", "order_ref")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, bus.DriverKafka, cfg.BusDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.StripeSignatureTolerance)
	assert.Equal(t, "order_ref", cfg.OrderMetadataKey)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "memory bus outside development",
			env:     map[string]string{"DATABASE_URL": "postgres://x", "BUS_DRIVER": "memory"},
			wantErr: "BUS_DRIVER=memory",
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"DATABASE_URL": "postgres://x", "BUS_DRIVER": "nats"},
			wantErr: "unknown BUS_DRIVER",
		},
		{
			name:    "bad duration",
			env:     map[string]string{"DATABASE_URL": "postgres://x", "RECEIPT_LOOKUP_TIMEOUT": "soon"},
			wantErr: "config.Load",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_DevelopmentAllowsInMemory(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "development")
	t.Setenv("BUS_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.DatabaseURL)
}

func TestConfig_DerivedOptions(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/payments")
	t.Setenv("CONSUMER_GROUP", "dispatch-a")
	t.Setenv("DB_CONN_MAX_LIFETIME_S", "120")

	cfg, err := Load()
	require.NoError(t, err)

	opts := cfg.BusOptions()
	assert.Equal(t, "dispatch-a", opts.RabbitMQ.Group)
	assert.Equal(t, "dispatch-a", opts.Kafka.Group)
	assert.Equal(t, 2*time.Minute, cfg.PoolConfig().ConnMaxLifetime)
	assert.Equal(t, 30, cfg.PoolConfig().ConnectAttempts)
}

func TestLoad_ProductionDispatcherNeedsNoDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("APP_ENV", "production")
	t.Setenv("BUS_DRIVER", "rabbitmq")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, bus.DriverRabbitMQ, cfg.BusDriver)

	err = cfg.ValidateStore()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required outside development")
}

func TestValidateStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "production with database", cfg: Config{AppEnv: "production", DatabaseURL: "postgres://x"}},
		{name: "development in memory", cfg: Config{AppEnv: "development"}},
		{name: "production in memory", cfg: Config{AppEnv: "production"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.ValidateStore()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
