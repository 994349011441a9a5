package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/flagx"
)

// parseFlags overlays command-line flags:
//
//	-a  gRPC bind address         -d  PostgreSQL DSN or "memory"
//	-s  JWT secret                -k  admin key
//	-t  access token minutes      -r  refresh token minutes
//	-w  tier cache TTL seconds    -l  log level
//	-u  S3 user                   -p  S3 password
//	-b  S3 bucket                 -g  S3 region
//	-e  S3 endpoint               -m  public media base URL
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-d", "-s", "-k", "-t", "-r", "-w", "-l", "-u", "-p", "-b", "-g", "-e", "-m",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN, or \"memory\"")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.StringVar(&config.AdminKey, "k", config.AdminKey, "admin key for tier changes")

	accessMinutes := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (minutes)")
	tierCacheSeconds := fs.Int("w", int(config.TierCacheTTL.Seconds()), "tier cache TTL (seconds)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 endpoint")
	fs.StringVar(&config.S3PublicBaseURL, "m", config.S3PublicBaseURL, "public media base URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessMinutes) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshMinutes) * time.Minute
	config.TierCacheTTL = time.Duration(*tierCacheSeconds) * time.Second
}
