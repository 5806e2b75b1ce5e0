package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env       string `mapstructure:"env"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type MongoConfig struct {
	URI                     string `mapstructure:"uri"`
	Database                string `mapstructure:"database"`
	AccountsCollection      string `mapstructure:"accounts_collection"`
	ConversationsCollection string `mapstructure:"conversations_collection"`
	InboxesCollection       string `mapstructure:"inboxes_collection"`
}

type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	IdentityTTL int    `mapstructure:"identity_ttl_seconds"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Mongo MongoConfig `mapstructure:"mongodb"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	// derived values
	RequestTimeout time.Duration
	IdentityTTL    time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	// sensible defaults
	c.RequestTimeout = 10 * time.Second
	if c.App.Port == 0 {
		c.App.Port = 8084
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "cakestory_messaging"
	}
	if c.Mongo.AccountsCollection == "" {
		c.Mongo.AccountsCollection = "accounts"
	}
	if c.Mongo.ConversationsCollection == "" {
		c.Mongo.ConversationsCollection = "conversations"
	}
	if c.Mongo.InboxesCollection == "" {
		c.Mongo.InboxesCollection = "inboxes"
	}
	if c.Redis.IdentityTTL == 0 {
		c.Redis.IdentityTTL = 3600
	}
	c.IdentityTTL = time.Duration(c.Redis.IdentityTTL) * time.Second
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "conversation.events"
	}
	return &c, nil
}
