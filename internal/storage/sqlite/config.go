package sqlite

import "fmt"

type Config struct {
	DatabasePath string
}

func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}
	return nil
}

func (c *Config) GetConnectionString() string {
	return c.DatabasePath + "?_busy_timeout=5000&_journal_mode=WAL"
}

func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./nic_dns.db",
	}
}
