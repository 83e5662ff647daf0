package config

type Config struct {
	Host string
	Port int
}
