package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const envPrefix string = "SIPWELL"

type ConfigHandler struct {
	mainViper   *viper.Viper
	secretViper *viper.Viper
	lock        *sync.Mutex
}

func (c *ConfigHandler) HandleChanges(callback func(Config, error)) {
	c.mainViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("main config file changed", "path", e.Name)
		callback(c.Config())
	})
	c.secretViper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("secret config file changed", "path", e.Name)
		callback(c.Config())
	})
}

// Creates a configuration handler that reads the configuration files, merges them and can watch
// them for changes. Please note that the merges replace whole arrays - they do not merge arrays.
// The secret file will always overwrite anything in the non-secret / regular file. And any environment
// variables (prefixed with SIPWELL_) will always rewrite stuff in the secret config, so the order of
// preference from most preferred to least is environment variables, secret config, non-secret config,
// built-in defaults.
func NewConfigHandler() *ConfigHandler {
	main := viper.New()
	main.SetConfigType("yaml")
	main.SetConfigName("config")
	setDefaults(main)
	secret := viper.New()
	secret.SetConfigType("yaml")
	secret.SetConfigName("secret_config")
	// Viper will look through the list of paths and use the first one where there is a file
	// so the path specified in the env variable will always take precedence over the rest
	configPaths := []string{}
	configPathEnv := os.Getenv("CONFIG_LOCATION")
	if configPathEnv != "" {
		configPaths = append(configPaths, configPathEnv)
	}
	if home, err := os.UserHomeDir(); err == nil {
		configPaths = append(configPaths, filepath.Join(home, ".sipwell"))
	}
	configPaths = append(configPaths, "/etc/sipwell", ".")
	for _, path := range configPaths {
		main.AddConfigPath(path)
		secret.AddConfigPath(path)
	}
	return &ConfigHandler{secretViper: secret, mainViper: main, lock: &sync.Mutex{}}
}

func setDefaults(v *viper.Viper) {
	sqlitePath := "tokens.db"
	if home, err := os.UserHomeDir(); err == nil {
		sqlitePath = filepath.Join(home, ".sipwell", "tokens.db")
	}
	v.SetDefault("runningEnvironment", string(Production))
	v.SetDefault("debugMode", false)
	v.SetDefault("client.baseURL", "http://localhost:2000")
	v.SetDefault("client.timeout", 10*time.Second)
	v.SetDefault("client.userAgent", "sipwell-client")
	v.SetDefault("client.rateLimits.enabled", false)
	v.SetDefault("client.rateLimits.rate", 10.0)
	v.SetDefault("client.rateLimits.burst", 20)
	v.SetDefault("auth.loginPath", "/api/auth/login")
	v.SetDefault("auth.registerPath", "/api/auth/register")
	v.SetDefault("auth.refreshPaths", []string{"/api/auth/refresh", "/api/auth/refresh-token", "/api/auth/token/refresh"})
	v.SetDefault("auth.refreshPayloadShapes", KnownRefreshPayloadShapes)
	v.SetDefault("auth.refreshTimeout", 10*time.Second)
	v.SetDefault("auth.oauth2.enabled", false)
	v.SetDefault("auth.breaker.enabled", true)
	v.SetDefault("auth.breaker.maxFailures", 5)
	v.SetDefault("auth.breaker.openTimeout", 30*time.Second)
	v.SetDefault("auth.proactiveRefresh.enabled", false)
	v.SetDefault("auth.proactiveRefresh.interval", time.Minute)
	v.SetDefault("auth.proactiveRefresh.expiresSoon", 2*time.Minute)
	v.SetDefault("tokenStore.type", TokenStoreTypeSQLite)
	v.SetDefault("tokenStore.sqlitePath", sqlitePath)
	v.SetDefault("tokenStore.keyPrefix", "")
	v.SetDefault("tokenStore.encryption.enabled", false)
	v.SetDefault("redis.type", DBTypeRedis)
	v.SetDefault("redis.addresses", []string{"localhost:6379"})
	v.SetDefault("redis.dbIndex", 0)
	v.SetDefault("monitoring.sentry.enabled", false)
	v.SetDefault("monitoring.sentry.sampleRate", 0.0)
	v.SetDefault("monitoring.prometheus.enabled", false)
	v.SetDefault("monitoring.prometheus.port", 8765)
	v.SetDefault("devServer.host", "localhost")
	v.SetDefault("devServer.port", 2000)
	v.SetDefault("devServer.accessTokenTTL", 15*time.Minute)
	v.SetDefault("devServer.rotateRefreshTokens", true)
	v.SetDefault("devServer.rateLimits.enabled", false)
	v.SetDefault("devServer.rateLimits.rate", 20.0)
	v.SetDefault("devServer.rateLimits.burst", 40)
}

func (c *ConfigHandler) merge() error {
	cm := c.secretViper.AllSettings()
	if len(cm) == 0 {
		return nil
	}
	return c.mainViper.MergeConfigMap(cm)
}

func (c *ConfigHandler) getConfig() (Config, error) {
	var output Config
	err := c.mainViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		slog.Debug("could not find a config file - only the defaults and environment variables will be used")
	}
	err = c.secretViper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
		slog.Debug("could not find any secret config files - only the public file and environment variables will be used")
	}
	// the env variables will overwrite stuff in the secret config if set
	for _, key := range c.mainViper.AllKeys() {
		envKey := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		err := c.secretViper.BindEnv(key, envKey)
		if err != nil {
			return Config{}, fmt.Errorf("config: unable to bind env %s: %w", envKey, err)
		}
	}
	// here the secret config (with any env variables merged) will overwrite anything from the non-secret configuration
	err = c.merge()
	if err != nil {
		return Config{}, err
	}
	err = c.mainViper.Unmarshal(
		&output,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				parseStringAsURL(),
			),
		),
	)
	if err != nil {
		return Config{}, err
	}
	err = output.Validate()
	if err != nil {
		return Config{}, err
	}
	return output, nil
}

func (c *ConfigHandler) Config() (Config, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.getConfig()
}

func (c *ConfigHandler) Watch() {
	c.mainViper.WatchConfig()
	c.secretViper.WatchConfig()
}

func parseStringAsURL() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data any) (interface{}, error) {
		// Check that the data is string
		if f.Kind() != reflect.String {
			return data, nil
		}

		// Check that the target type is our custom type
		if t != reflect.TypeOf(url.URL{}) {
			return data, nil
		}

		// Return the parsed value
		dataStr, ok := data.(string)
		if !ok {
			return nil, fmt.Errorf("cannot cast URL value to string")
		}
		if dataStr == "" {
			return nil, fmt.Errorf("empty values are not allowed for URLs")
		}
		url, err := url.Parse(dataStr)
		if err != nil {
			return nil, err
		}
		return url, nil
	}
}
