// Package credentials supplies the exchange access/secret key pair.
package credentials

import (
	"errors"
	"os"
)

// ErrUnavailable is returned when no complete key pair is configured.
var ErrUnavailable = errors.New("exchange credentials unavailable")

// Pair is an exchange access/secret key pair.
type Pair struct {
	AccessKey string
	SecretKey string
}

// Provider returns the current key pair or ErrUnavailable.
type Provider interface {
	Credentials() (Pair, error)
}

// Static serves a fixed key pair, typically from the config file.
type Static Pair

func (s Static) Credentials() (Pair, error) {
	if s.AccessKey == "" || s.SecretKey == "" {
		return Pair{}, ErrUnavailable
	}
	return Pair(s), nil
}

// Env reads the key pair from environment variables on every call,
// so a rotated .env takes effect on the next session start.
type Env struct {
	AccessKeyVar string
	SecretKeyVar string
}

// DefaultEnv reads UPBIT_ACCESS_KEY and UPBIT_SECRET_KEY.
func DefaultEnv() Env {
	return Env{AccessKeyVar: "UPBIT_ACCESS_KEY", SecretKeyVar: "UPBIT_SECRET_KEY"}
}

func (e Env) Credentials() (Pair, error) {
	return Static{AccessKey: os.Getenv(e.AccessKeyVar), SecretKey: os.Getenv(e.SecretKeyVar)}.Credentials()
}

// Chain returns the first provider that yields a complete pair.
type Chain []Provider

func (c Chain) Credentials() (Pair, error) {
	for _, p := range c {
		if pair, err := p.Credentials(); err == nil {
			return pair, nil
		}
	}
	return Pair{}, ErrUnavailable
}
