package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

var Conf *Config

type (
	Config struct {
		AppName   string
		Env       string // DEV (local; default), TEST, QA, PROD
		Debug     bool
		TestMode  bool
		Build     string
		SecretKey string

		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		SendgridAPIKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host      string
		Port      int
		DebugHost string

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
)

func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) Validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.AppName, "appName"),
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		vala.StringNotEmpty(c.Database.Engine, "database.engine"),
		vala.StringNotEmpty(c.Database.Name, "database.name"),
		vala.GreaterThan(int(c.Server.JWTExpirationDelta), 0, "server.jwtExpirationDelta"),
	).Check()
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Ratiba")
	v.SetDefault("secretKey", "w#2cu^h$+a39mv!*kq)e8yrj(x5_z&t0dn%7pgf4@lbso6i=1c")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "localhost:8001")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", 5432)
	v.SetDefault("databaseName", "ratiba")
	v.SetDefault("databaseDisableTLS", true)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	Conf = &Config{
		AppName:   v.GetString("appName"),
		Env:       env,
		Debug:     v.GetBool("debug"),
		TestMode:  v.GetBool("testMode"),
		Build:     v.GetString("build"),
		SecretKey: v.GetString("secretKey"),

		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetInt("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetInt("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
	}

	if err := Conf.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
}
