// Package config provides loading and environment overlay for eventual
// server configuration. It exposes a Default() baseline, file loading (JSON,
// or YAML by extension), an EVENTUAL_* environment overlay and an optional
// dotenv file.
//
// Example:
//
//	cfg := config.Default()
//	// Optionally load from file and overlay env vars
//	if fileCfg, err := config.Load("/etc/eventual.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	_ = config.LoadDotEnv(".env")
//	_ = config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
