package main

import (
	"github.com/kelseyhightower/envconfig"
)

// HTTP holds the listener configuration.
type HTTP struct {
	Addr string `default:":8080" envconfig:"ADDR"`
}

// Upstream holds the remote storefront API configuration.
type Upstream struct {
	BaseURL string `default:"http://localhost:3000/api" envconfig:"BASE_URL"`
	Token   string `default:"" envconfig:"TOKEN"`
}

// Redis holds the cart storage backend configuration. Empty Addr selects
// file storage instead.
type Redis struct {
	Addr string `default:"" envconfig:"ADDR"`
}

// Cart holds the cart persistence configuration.
type Cart struct {
	Namespace string `default:"cart-items" envconfig:"NAMESPACE"`
	Dir       string `default:"./data" envconfig:"DIR"`
}

// Log holds the logging configuration.
type Log struct {
	Level  string `default:"info" envconfig:"LEVEL"`
	Pretty bool   `default:"false" envconfig:"PRETTY"`
}

// Config is the proxy configuration, loaded from STOREFRONT_* variables.
type Config struct {
	HTTP     HTTP
	Upstream Upstream
	Redis    Redis
	Cart     Cart
	Log      Log
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("STOREFRONT", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}
