package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	AppPort string

	// Bank/network identity, consumed as opaque strings.
	BankName         string
	Network          string
	PlatformContract string
	BankPublicKey    string // PEM

	// Session signing account; empty means no wallet is available.
	SelfAccount string

	// Development-ledger store.
	LedgerDialect string // "sqlite" or "mysql"
	LedgerDSN     string
	LedgerOwner   string

	RedisAddr string
	RedisDB   int

	AmqpURL      string
	AmqpExchange string

	PageSize     int
	CacheTTLSecs int
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func Load() *Config {
	c := &Config{
		AppPort:          getenv("APP_PORT", "8080"),
		BankName:         getenv("BANK_NAME", "devbank"),
		Network:          getenv("NETWORK", "devnet"),
		PlatformContract: getenv("PLATFORM_CONTRACT", ""),
		BankPublicKey:    getenv("BANK_PUBLIC_KEY", ""),
		SelfAccount:      getenv("SELF_ACCOUNT", ""),

		LedgerDialect: getenv("LEDGER_DIALECT", "sqlite"),
		LedgerDSN:     getenv("LEDGER_DSN", "file:ledger.db?_fk=1"),
		LedgerOwner:   getenv("LEDGER_OWNER", ""),

		RedisAddr:    getenv("REDIS_ADDR", ""),
		AmqpURL:      getenv("AMQP_URL", ""),
		AmqpExchange: getenv("AMQP_EXCHANGE", "lending.confirmations"),

		PageSize:     10,
		CacheTTLSecs: 60,
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.PageSize = n
		}
	}
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CacheTTLSecs = n
		}
	}
	return c
}

func (c *Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("missing APP_PORT")
	}
	if c.PlatformContract == "" {
		return errors.New("missing PLATFORM_CONTRACT")
	}
	if c.BankPublicKey == "" {
		return errors.New("missing BANK_PUBLIC_KEY (PEM)")
	}
	if c.LedgerDialect != "sqlite" && c.LedgerDialect != "mysql" {
		return errors.New("LEDGER_DIALECT must be sqlite or mysql")
	}
	return nil
}
