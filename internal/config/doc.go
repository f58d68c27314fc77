// Package config loads and merges stylegate configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (STYLEGATE_RULES, STYLEGATE_EXTENSION, STYLEGATE_FAIL_ON, etc.)
//  3. Config file ($XDG_CONFIG_HOME/stylegate/config.json)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged and validated [Config], [Save] to write a
// config file, and [SetField] to update a single key.
package config
