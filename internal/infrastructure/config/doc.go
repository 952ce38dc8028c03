// Package config handles loading and validating Homepanel Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with HOMEPANEL_* environment variables (caarlos0/env)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Secrets (JWT secret, MQTT password, InfluxDB token) should be set via
//     environment variables rather than committed YAML
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Port)
package config
