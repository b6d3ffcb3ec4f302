// Package config loads config.yaml into a Config, applies LEDTUBE_*
// environment overrides and validates the result before any socket is
// opened.
//
// Secrets (security.jwt.secret, mqtt.broker.password, influxdb.token) are
// best supplied through the environment so the YAML file can be committed.
// Validation cross-checks sections: a music show as streamer.default_show
// requires audio.enabled, and auth requires a JWT secret.
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return fmt.Errorf("loading config: %w", err)
//	}
package config
