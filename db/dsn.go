package db

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Credentials identify the Postgres server and database
type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSL      SSLOptions
}

type SSLOptions struct {
	Enabled             bool
	CertPath            string
	DisableVerification bool
}

// DSN renders the credentials as a lib/pq connection URL
func (c Credentials) DSN(timeout time.Duration) (string, error) {
	q := url.Values{}

	switch {
	case !c.SSL.Enabled:
		q.Set("sslmode", "disable")
	case c.SSL.DisableVerification:
		q.Set("sslmode", "require")
	default:
		q.Set("sslmode", "verify-full")
	}

	if c.SSL.Enabled && c.SSL.CertPath != "" {
		if _, err := os.Stat(c.SSL.CertPath); err != nil {
			return "", fmt.Errorf("certificate file not found: %s: %w", c.SSL.CertPath, err)
		}
		q.Set("sslrootcert", c.SSL.CertPath)
	}

	if timeout > 0 {
		secs := int(timeout / time.Second)
		if secs < 1 {
			secs = 1
		}
		q.Set("connect_timeout", strconv.Itoa(secs))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

// Redacted returns the DSN target without the password, for logging
func (c Credentials) Redacted() string {
	return fmt.Sprintf("%s@%s/%s", c.User, net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Database)
}
