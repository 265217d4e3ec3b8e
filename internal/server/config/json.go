package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/rechub/internal/flagx"
	"github.com/dmitrijs2005/rechub/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// either "15m" style strings or integer nanoseconds. Absent keys leave the
// corresponding Config field untouched.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	AdminEmails                  []string       `json:"admin_emails"`
	CoachEmails                  []string       `json:"coach_emails"`
	SMTPHost                     string         `json:"smtp_host"`
	SMTPPort                     int            `json:"smtp_port"`
	SMTPSecure                   *bool          `json:"smtp_secure"`
	SMTPUser                     string         `json:"smtp_user"`
	SMTPPass                     string         `json:"smtp_pass"`
	SMTPFrom                     string         `json:"smtp_from"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
	AttachmentHosts              []string       `json:"attachment_hosts"`
	AggregatorMaxRetries         uint64         `json:"aggregator_max_retries"`
	CORSOrigins                  []string       `json:"cors_origins"`
	Debug                        bool           `json:"debug"`
}

// parseJson loads the file named by -c/-config, if any, into config.
// Unreadable files and invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration > 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.AdminEmails != nil {
		config.AdminEmails = c.AdminEmails
	}
	if c.CoachEmails != nil {
		config.CoachEmails = c.CoachEmails
	}
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	if c.SMTPSecure != nil {
		if *c.SMTPSecure {
			config.SMTPSecure = "true"
		} else {
			config.SMTPSecure = "false"
		}
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPass, c.SMTPPass)
	setString(&config.SMTPFrom, c.SMTPFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.AttachmentHosts != nil {
		config.AttachmentHosts = c.AttachmentHosts
	}
	if c.AggregatorMaxRetries != 0 {
		config.AggregatorMaxRetries = c.AggregatorMaxRetries
	}
	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	config.Debug = config.Debug || c.Debug
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
