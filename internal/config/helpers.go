package config

import (
	"net"
	"strconv"
	"time"
)

// GetServerAddress returns the HTTP listen address
func (c *Config) GetServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.HTTPPort))
}

// BodyLimit returns the request body limit in bytes
func (c *ServerConfig) BodyLimit() int {
	return c.BodyLimitMB * 1024 * 1024
}

// Timeout returns the outbound webhook timeout
func (c *CallbackConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Tokens returns every accepted credential, secret tokens first.
func (c *AuthConfig) Tokens() []string {
	tokens := make([]string, 0, len(c.SecretTokens)+len(c.APIKeys))
	tokens = append(tokens, c.SecretTokens...)
	tokens = append(tokens, c.APIKeys...)
	return tokens
}
