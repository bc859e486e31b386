package config

import "fmt"

type RunningEnvironment string

const (
	Development RunningEnvironment = "development"
	Production  RunningEnvironment = "production"
)

type Config struct {
	RunningEnvironment RunningEnvironment
	DebugMode          bool
	Client             ClientConfig
	Auth               AuthConfig
	TokenStore         TokenStoreConfig
	Redis              RedisConfig
	Monitoring         MonitoringConfig
	DevServer          DevServerConfig
}

func (c *Config) Validate() error {
	if c.RunningEnvironment != Development && c.RunningEnvironment != Production {
		return fmt.Errorf(
			"unknown running environment %q (must be one of %s, %s)",
			c.RunningEnvironment,
			Development,
			Production,
		)
	}
	err := c.Client.Validate()
	if err != nil {
		return err
	}
	err = c.Auth.Validate()
	if err != nil {
		return err
	}
	err = c.TokenStore.Validate(c.RunningEnvironment)
	if err != nil {
		return err
	}
	if c.TokenStore.Type == TokenStoreTypeRedis {
		err = c.Redis.Validate(c.RunningEnvironment)
		if err != nil {
			return err
		}
	}
	return nil
}
