package config

import "fmt"

type RedisConfig struct {
	Type       string
	Addresses  []string
	IsSentinel bool
	Password   RedactedString
	MasterName string
	DBIndex    int
}

const DBTypeRedis string = "redis"
const DBTypeRedisMock string = "redis-mock"

func (c RedisConfig) Validate(e RunningEnvironment) error {
	if e != Development && c.Type == DBTypeRedisMock {
		return fmt.Errorf("redis type cannot be \"redis-mock\" in production")
	}
	switch c.Type {
	case DBTypeRedisMock:
		return nil
	case DBTypeRedis:
		if len(c.Addresses) == 0 {
			return fmt.Errorf("at least one redis address is required")
		}
		if c.IsSentinel && c.MasterName == "" {
			return fmt.Errorf("the redis master name is required with sentinel")
		}
		return nil
	default:
		return fmt.Errorf("unrecognized redis type %q", c.Type)
	}
}
