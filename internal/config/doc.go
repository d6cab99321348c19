// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

/*
Package config loads Warbler's configuration.

Sources are layered with koanf, later layers winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, else config.yaml, config.yml or
    /etc/warbler/config.yaml
 3. Environment variables listed in envMappings

Only mapped environment variables are read; anything else in the process
environment is ignored. Slice settings such as CORS_ORIGINS accept
comma-separated values.

Example YAML:

	server:
	  port: 8080
	store:
	  path: /data/warbler
	  conflict_retries: 5
	sweep:
	  inline_limit: 256
	  bookmark_inline_limit: 1000
	notify:
	  backend: nats
	  embedded_server: true
	security:
	  auth_mode: jwt
	  cors_origins: [https://warbler.example]

Load validates the result; errors name the environment variable to fix.
*/
package config
