// Package config holds the CLI configuration types.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/1ureka/lockstep/internal/protocol"
)

// Role represents the peer's side of the signaling handshake.
type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

// Defaults used when a flag is left unset.
const (
	DefaultFrameRate   = 30
	DefaultMetricsAddr = "127.0.0.1:9464"
)

// Config stores the parameters gathered from flags and interactive prompts.
type Config struct {
	Role          Role
	Port          int    // Host: local signaling port
	WSURL         string // Client: signaling URL to connect to
	PlayerID      uint8
	MaxPacketSize int
	ICEServers    []string      // empty uses the transport defaults
	Retransmits   int           // SCTP retransmissions per datagram, negative for fully reliable
	FrameRate     int           // logic frames per second
	RunAhead      int           // frames between issue and execution
	StatsInterval time.Duration // 0 disables the reporter
	CapturePath   string        // empty disables capture
	MetricsAddr   string        // empty disables the metrics listener
	Debug         bool
}

// Default returns a Config with every optional field at its default.
func Default() Config {
	return Config{
		MaxPacketSize: protocol.MaxPacketSize,
		Retransmits:   -1,
		FrameRate:     DefaultFrameRate,
		RunAhead:      2,
		StatsInterval: 10 * time.Second,
	}
}

// FrameInterval is the wall time of one logic frame.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	switch c.Role {
	case RoleHost:
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("invalid port %d", c.Port)
		}
	case RoleClient:
		if c.WSURL == "" {
			return errors.New("client role needs a signaling URL")
		}
	default:
		return fmt.Errorf("unknown role %q", c.Role)
	}
	if c.MaxPacketSize <= protocol.ChunkOverhead() {
		return fmt.Errorf("max packet size %d cannot hold a chunk (overhead %d)",
			c.MaxPacketSize, protocol.ChunkOverhead())
	}
	if c.Retransmits > 65535 {
		return fmt.Errorf("invalid retransmit limit %d", c.Retransmits)
	}
	if c.FrameRate <= 0 || c.FrameRate > 1000 {
		return fmt.Errorf("invalid frame rate %d", c.FrameRate)
	}
	if c.RunAhead < 0 {
		return fmt.Errorf("invalid run-ahead %d", c.RunAhead)
	}
	return nil
}
