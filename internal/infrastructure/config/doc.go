// Package config handles loading and validating StayFlow Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (STAYFLOW_*)
//   - Validation of required fields
//   - Default value handling
//
// Credentials (JWT secret, Twilio and SendGrid keys, InfluxDB token) should be
// supplied through the environment, optionally via a .env file loaded by the
// binary before Load is called.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Site.Name)
package config
