package config

import "time"

type Config struct {
	Service     *ServiceConfig
	Postgres    *PostgresConfig
	Redis       *RedisConfig
	Broker      *BrokerConfig
	Stream      *StreamConfig
	AI          *AIConfig
	Logger      *LoggerConfig
	Tracer      *TracerConfig
	Worker      *WorkerConfig
	SecretToken string
}

type ServiceConfig struct {
	Name string
	Env  string
	Addr string
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

type RedisConfig struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
	PingTimeout  time.Duration
}

// BrokerConfig tunes the server side of the websocket channel.
type BrokerConfig struct {
	HeartbeatInterval time.Duration // ping cadence
	HeartbeatTimeout  time.Duration // missed-pong window before the connection is dropped
	WriteTimeout      time.Duration
	SendBuffer        int // per-connection outbound queue depth
	MaxMessageSize    int64
}

// StreamConfig tunes the SSE emitter registry.
type StreamConfig struct {
	SessionDeadline time.Duration // open sessions past this are force-failed
	SendBuffer      int
}

type AIConfig struct {
	APIKey     string
	Model      string
	BasePrompt string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type TracerConfig struct {
	Address string
}

type WorkerConfig struct {
	FanoutGroup string
}
