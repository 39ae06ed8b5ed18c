package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   gRPC bind address (e.g., ":50051"); empty disables it
//	-d string   PostgreSQL DSN
//	-s string   admin token HMAC secret
//	-t int      admin token validity, minutes
//	-f string   data directory
//	-i string   startup directory
//	-k string   key pair passphrase (insecure; prompted when empty)
//	-y int      sync interval, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-secure     delete startup files once loaded
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgsWithSwitches(os.Args[1:],
		[]string{"-a", "-d", "-s", "-t", "-f", "-i", "-k", "-y", "-u", "-p", "-b", "-g", "-e"},
		[]string{"-secure"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.DataDir, "f", config.DataDir, "data directory")
	fs.StringVar(&config.StartupDir, "i", config.StartupDir, "startup directory")
	fs.StringVar(&config.Passphrase, "k", config.Passphrase, "key pair passphrase")
	fs.BoolVar(&config.SecureMode, "secure", config.SecureMode, "delete startup files after loading")

	adminTokenValidityDuration := fs.Int("t", int(config.AdminTokenValidityDuration.Minutes()), "admin_token_validity_duration (in minutes)")
	syncInterval := fs.Int("y", int(config.SyncInterval.Minutes()), "sync interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AdminTokenValidityDuration = time.Duration(*adminTokenValidityDuration) * time.Minute
	config.SyncInterval = time.Duration(*syncInterval) * time.Minute
}
