package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/bulletinkeeper/internal/flagx"
	"github.com/dmitrijs2005/bulletinkeeper/internal/timex"
	"github.com/tidwall/jsonc"
)

// JsonConfig is the on-disk shape of the configuration file. Interval
// fields accept "90s"-style strings or integer nanoseconds.
type JsonConfig struct {
	DataDir                    string         `json:"data_dir"`
	StartupDir                 string         `json:"startup_dir"`
	EndpointAddrGRPC           *string        `json:"endpoint_addr_grpc"`
	DatabaseDSN                string         `json:"database_dsn"`
	SecretKey                  string         `json:"secret_key"`
	AdminTokenValidityDuration timex.Duration `json:"admin_token_validity_duration"`
	SecureMode                 *bool          `json:"secure_mode"`
	MaxFailedUploadRequests    int            `json:"max_failed_upload_requests"`
	ShutdownPollInterval       timex.Duration `json:"shutdown_poll_interval"`
	UploadDecayInterval        timex.Duration `json:"upload_decay_interval"`
	SyncInterval               timex.Duration `json:"sync_interval"`
	BackgroundInterval         timex.Duration `json:"background_interval"`
	S3RootUser                 string         `json:"s3_root_user"`
	S3RootPassword             string         `json:"s3_root_password"`
	S3Bucket                   string         `json:"s3_bucket"`
	S3Region                   string         `json:"s3_region"`
	S3BaseEndpoint             string         `json:"s3_base_endpoint"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// parseJson loads the file named by -c/-config, if any, and overlays every
// field it sets onto config. Comments and trailing commas are allowed. An
// unreadable or invalid file panics.
//
// endpoint_addr_grpc may be set to "" to disable the client listener.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(jsonc.ToJSON(file), c)
	if err != nil {
		panic(err)
	}

	setString(&config.DataDir, c.DataDir)
	setString(&config.StartupDir, c.StartupDir)
	if c.EndpointAddrGRPC != nil {
		config.EndpointAddrGRPC = *c.EndpointAddrGRPC
	}
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AdminTokenValidityDuration, c.AdminTokenValidityDuration)
	if c.SecureMode != nil {
		config.SecureMode = *c.SecureMode
	}
	if c.MaxFailedUploadRequests > 0 {
		config.MaxFailedUploadRequests = c.MaxFailedUploadRequests
	}
	setDuration(&config.ShutdownPollInterval, c.ShutdownPollInterval)
	setDuration(&config.UploadDecayInterval, c.UploadDecayInterval)
	setDuration(&config.SyncInterval, c.SyncInterval)
	setDuration(&config.BackgroundInterval, c.BackgroundInterval)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}
