// Package config handles configuration for the bulletin server, including
// defaults, a JSON (comments allowed) overlay, and command-line flags.
package config

import (
	"path/filepath"
	"time"
)

// Config holds runtime settings for the bulletin server.
//
// Fields:
//   - DataDir: root for the upload list, news, interim files and triggers.
//   - StartupDir: files read once at boot (key pair, compliance, lists).
//     Defaults to <DataDir>/deleteOnStartup.
//   - EndpointAddrGRPC: bind address for the client listener. Empty disables it.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps packets in memory.
//   - SecretKey: HMAC secret for admin tokens (HS256).
//   - S3*: object storage the sealed bulletins are mirrored to. An empty
//     bucket turns mirroring off.
//   - SecureMode: delete the startup files once they are loaded.
type Config struct {
	DataDir                    string
	StartupDir                 string
	EndpointAddrGRPC           string
	DatabaseDSN                string
	SecretKey                  string
	AdminTokenValidityDuration time.Duration
	Passphrase                 string
	SecureMode                 bool
	MaxFailedUploadRequests    int

	ShutdownPollInterval time.Duration
	UploadDecayInterval  time.Duration
	SyncInterval         time.Duration
	BackgroundInterval   time.Duration

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.DataDir = "data"
	c.EndpointAddrGRPC = ":50051"
	c.SecretKey = "secretKey"
	c.AdminTokenValidityDuration = 15 * time.Minute
	c.MaxFailedUploadRequests = 100
	c.ShutdownPollInterval = time.Second
	c.UploadDecayInterval = time.Minute
	c.SyncInterval = time.Hour
	c.BackgroundInterval = 5 * time.Minute
	c.S3Region = "us-east-1"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// ResolvedStartupDir is StartupDir with its default applied.
func (c *Config) ResolvedStartupDir() string {
	if c.StartupDir != "" {
		return c.StartupDir
	}
	return filepath.Join(c.DataDir, "deleteOnStartup")
}

func (c *Config) StartupFile(name string) string { return filepath.Join(c.ResolvedStartupDir(), name) }

func (c *Config) DataFile(name string) string { return filepath.Join(c.DataDir, name) }

// Startup directory layout.
const (
	KeyPairFile      = "keypair.dat"
	ComplianceFile   = "compliance.txt"
	BannedFile       = "banned.txt"
	TestAccountsFile = "testAccounts.txt"
	MagicWordsFile   = "magicwords.txt"
)

// StartupFiles lists every file the startup directory may hold.
func StartupFiles() []string {
	return []string{KeyPairFile, ComplianceFile, BannedFile, TestAccountsFile, MagicWordsFile}
}
