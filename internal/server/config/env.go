package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// envConfig lists the environment variables the server reads. Unset
// variables leave the corresponding Config field untouched.
type envConfig struct {
	EndpointAddrHTTP             string        `env:"HTTP_ADDR"`
	EndpointAddrGRPC             string        `env:"GRPC_ADDR"`
	DatabaseDSN                  string        `env:"DATABASE_DSN"`
	SecretKey                    string        `env:"SECRET_KEY"`
	AccessTokenValidityDuration  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"REFRESH_TOKEN_TTL"`

	// ROLES_* are the preferred names, the bare names are still honoured.
	RolesAdminEmails []string `env:"ROLES_ADMIN_EMAILS" envSeparator:","`
	AdminEmails      []string `env:"ADMIN_EMAILS" envSeparator:","`
	RolesCoachEmails []string `env:"ROLES_COACH_EMAILS" envSeparator:","`
	CoachEmails      []string `env:"COACH_EMAILS" envSeparator:","`

	SMTPHost   string `env:"SMTP_HOST"`
	SMTPPort   int    `env:"SMTP_PORT"`
	SMTPSecure string `env:"SMTP_SECURE"`
	SMTPUser   string `env:"SMTP_USER"`
	SMTPPass   string `env:"SMTP_PASS"`
	SMTPFrom   string `env:"SMTP_FROM"`

	S3RootUser     string `env:"S3_ROOT_USER"`
	S3RootPassword string `env:"S3_ROOT_PASSWORD"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`

	AttachmentHosts []string `env:"ATTACHMENT_HOSTS" envSeparator:","`

	AggregatorMaxRetries uint64   `env:"AGGREGATOR_MAX_RETRIES"`
	CORSOrigins          []string `env:"CORS_ORIGINS" envSeparator:","`
	Debug                bool     `env:"DEBUG"`
}

func parseEnv(config *Config) error {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	setString(&config.EndpointAddrHTTP, e.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, e.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, e.DatabaseDSN)
	setString(&config.SecretKey, e.SecretKey)
	if e.AccessTokenValidityDuration > 0 {
		config.AccessTokenValidityDuration = e.AccessTokenValidityDuration
	}
	if e.RefreshTokenValidityDuration > 0 {
		config.RefreshTokenValidityDuration = e.RefreshTokenValidityDuration
	}
	if l := firstList(e.RolesAdminEmails, e.AdminEmails); l != nil {
		config.AdminEmails = l
	}
	if l := firstList(e.RolesCoachEmails, e.CoachEmails); l != nil {
		config.CoachEmails = l
	}
	setString(&config.SMTPHost, e.SMTPHost)
	if e.SMTPPort != 0 {
		config.SMTPPort = e.SMTPPort
	}
	setString(&config.SMTPSecure, e.SMTPSecure)
	setString(&config.SMTPUser, e.SMTPUser)
	setString(&config.SMTPPass, e.SMTPPass)
	setString(&config.SMTPFrom, e.SMTPFrom)
	setString(&config.S3RootUser, e.S3RootUser)
	setString(&config.S3RootPassword, e.S3RootPassword)
	setString(&config.S3Bucket, e.S3Bucket)
	setString(&config.S3Region, e.S3Region)
	setString(&config.S3BaseEndpoint, e.S3BaseEndpoint)
	if e.AttachmentHosts != nil {
		config.AttachmentHosts = e.AttachmentHosts
	}
	if e.AggregatorMaxRetries != 0 {
		config.AggregatorMaxRetries = e.AggregatorMaxRetries
	}
	if e.CORSOrigins != nil {
		config.CORSOrigins = e.CORSOrigins
	}
	config.Debug = config.Debug || e.Debug
	return nil
}

func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}
