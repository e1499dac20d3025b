// Package config provides configuration management for the realtime
// gateway. Configuration is loaded from a YAML file with ${VAR} and
// ${VAR:-default} environment variable substitution, validated before
// use, and optionally watched for changes with fsnotify.
package config
