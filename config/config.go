package config

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Load reads configuration from a JSON file in configDir and sets default values.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName("hxnet.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("settingsPath", "./hxnet.toml")

	viper.SetDefault("transport.protocol", "kcp")
	viper.SetDefault("transport.listenAddress", "127.0.0.1:19132")
	viper.SetDefault("transport.unreliableRate", 400)
	viper.SetDefault("transport.unreliableBurst", 16)

	viper.SetDefault("authority.mode", "dynamic")
	viper.SetDefault("authority.zoneRadius", 0.5)
	viper.SetDefault("authority.radiusHysteresis", 0.1)

	viper.SetDefault("replication.targetsFrequency", 50)
	viper.SetDefault("replication.stateFrequency", 50)
	viper.SetDefault("replication.targetsBufferDuration", 0.05)
	viper.SetDefault("replication.stateBufferDuration", 0.05)

	viper.SetDefault("simulation.tickRate", 90)

	viper.SetDefault("statsview.enabled", false)
	viper.SetDefault("statsview.address", "localhost:18066")
}

// LogLevel returns the configured log level, falling back to info.
func LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(viper.GetString("logLevel"))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// TickInterval returns the time between simulation ticks.
func TickInterval() time.Duration {
	rate := viper.GetFloat64("simulation.tickRate")
	if rate <= 0 {
		rate = 90
	}
	return time.Duration(float64(time.Second) / rate)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
