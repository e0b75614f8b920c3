package config

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	StaticDir       string        `json:"static_dir"`
	MongoURI        string        `json:"mongo_uri"`
	MongoDatabase   string        `json:"mongo_database"`
	MaxConnections  int           `json:"max_connections"`
	BroadcastBuffer int           `json:"broadcast_buffer"`
	SendBuffer      int           `json:"send_buffer"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	PongTimeout     time.Duration `json:"pong_timeout"`
	PingInterval    time.Duration `json:"ping_interval"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// Input limits
	MaxMessageLength  int `json:"max_message_length"`
	MaxNicknameLength int `json:"max_nickname_length"`
	MaxRoomNameLength int `json:"max_room_name_length"`

	EnableHealthCheck   bool          `json:"enable_health_check"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            ":3000",
		StaticDir:       "./static",
		MongoURI:        "mongodb://localhost:27017",
		MongoDatabase:   "pingmemaybe",
		MaxConnections:  1000,
		BroadcastBuffer: 256,
		SendBuffer:      256,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
		PongTimeout:     60 * time.Second,
		PingInterval:    54 * time.Second, // ต้องน้อยกว่า PongTimeout
		ShutdownTimeout: 10 * time.Second,

		MaxMessageLength:  1000,
		MaxNicknameLength: 50,
		MaxRoomNameLength: 50,

		EnableHealthCheck:   true,
		HealthCheckInterval: 30 * time.Second,
	}
}

// LoadFromEnv overrides configuration values from environment variables.
// Unset or unparsable variables keep their defaults.
func (c *ServerConfig) LoadFromEnv() *ServerConfig {
	if port := os.Getenv("PORT"); port != "" {
		if port[0] != ':' {
			port = ":" + port
		}
		c.Port = port
	}
	if dir := os.Getenv("STATIC_DIR"); dir != "" {
		c.StaticDir = dir
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		c.MongoURI = uri
	}
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		c.MongoDatabase = db
	}

	c.MaxConnections = envInt("MAX_CONNECTIONS", c.MaxConnections)
	c.BroadcastBuffer = envInt("BROADCAST_BUFFER", c.BroadcastBuffer)
	c.SendBuffer = envInt("SEND_BUFFER", c.SendBuffer)
	c.MaxMessageLength = envInt("MAX_MESSAGE_LENGTH", c.MaxMessageLength)
	c.MaxNicknameLength = envInt("MAX_NICKNAME_LENGTH", c.MaxNicknameLength)
	c.MaxRoomNameLength = envInt("MAX_ROOM_NAME_LENGTH", c.MaxRoomNameLength)

	c.ReadTimeout = envSeconds("READ_TIMEOUT_SECONDS", c.ReadTimeout)
	c.WriteTimeout = envSeconds("WRITE_TIMEOUT_SECONDS", c.WriteTimeout)
	c.PongTimeout = envSeconds("PONG_TIMEOUT_SECONDS", c.PongTimeout)
	c.PingInterval = envSeconds("PING_INTERVAL_SECONDS", c.PingInterval)
	c.ShutdownTimeout = envSeconds("SHUTDOWN_TIMEOUT_SECONDS", c.ShutdownTimeout)

	if v := os.Getenv("ENABLE_HEALTH_CHECK"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.EnableHealthCheck = enabled
		}
	}
	c.HealthCheckInterval = envSeconds("HEALTH_CHECK_INTERVAL_SECONDS", c.HealthCheckInterval)

	return c
}

// envInt parses a positive integer environment variable
func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// envSeconds parses an environment variable as a number of seconds
func envSeconds(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

// ServerMetrics holds server performance metrics
type ServerMetrics struct {
	TotalConnections  int64     `json:"total_connections"`
	ActiveConnections int64     `json:"active_connections"`
	TotalMessages     int64     `json:"total_messages"`
	TotalBroadcasts   int64     `json:"total_broadcasts"`
	TotalRooms        int64     `json:"total_rooms"`
	StartTime         time.Time `json:"start_time"`
	LastMessageTime   time.Time `json:"last_message_time"`
	MessageRate       float64   `json:"message_rate"`
	mutex             sync.RWMutex
}

// NewServerMetrics creates new server metrics
func NewServerMetrics() *ServerMetrics {
	return &ServerMetrics{
		StartTime: time.Now(),
	}
}

// IncrementConnections increments connection count
func (sm *ServerMetrics) IncrementConnections() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.TotalConnections++
	sm.ActiveConnections++
}

// DecrementConnections decrements active connection count
func (sm *ServerMetrics) DecrementConnections() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.ActiveConnections--
}

// IncrementMessages increments message count
func (sm *ServerMetrics) IncrementMessages() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.TotalMessages++
	sm.LastMessageTime = time.Now()
}

// IncrementBroadcasts increments broadcast count
func (sm *ServerMetrics) IncrementBroadcasts() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.TotalBroadcasts++
}

// IncrementRooms increments room count
func (sm *ServerMetrics) IncrementRooms() {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.TotalRooms++
}

// GetMetrics returns current metrics with calculated rates
func (sm *ServerMetrics) GetMetrics() *ServerMetrics {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	uptime := time.Since(sm.StartTime).Seconds()
	messageRate := 0.0
	if uptime > 0 {
		messageRate = float64(sm.TotalMessages) / uptime
	}

	return &ServerMetrics{
		TotalConnections:  sm.TotalConnections,
		ActiveConnections: sm.ActiveConnections,
		TotalMessages:     sm.TotalMessages,
		TotalBroadcasts:   sm.TotalBroadcasts,
		TotalRooms:        sm.TotalRooms,
		StartTime:         sm.StartTime,
		LastMessageTime:   sm.LastMessageTime,
		MessageRate:       messageRate,
	}
}
