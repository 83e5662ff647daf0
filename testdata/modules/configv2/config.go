package config

import "time"

type TLS struct {
	CertFile string
	KeyFile  string
}

type Config struct {
	Endpoints []string
	Timeout   time.Duration
	TLS       *TLS
}
