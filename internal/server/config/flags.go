package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/rechub/internal/flagx"
)

// parseFlags overlays command-line flags onto config.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-grpc string  gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-admins list  comma-separated admin allow-list
//	-coaches list comma-separated coach allow-list
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// os.Args is filtered with flagx.FilterArgs first so that flags owned by
// other layers (-c, -config) do not break parsing. SMTP settings are only
// read from the JSON file and the environment.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-grpc", "-d", "-s", "-t", "-r", "-admins", "-coaches", "-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "grpc", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	admins := flagx.ListValue(config.AdminEmails)
	coaches := flagx.ListValue(config.CoachEmails)
	fs.Var(&admins, "admins", "comma-separated admin emails")
	fs.Var(&coaches, "coaches", "comma-separated coach emails")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	config.AdminEmails = []string(admins)
	config.CoachEmails = []string(coaches)
}
