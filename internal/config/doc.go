// Package config provides configuration parsing and management for the mvccview dashboard.
//
// # Overview
//
// Configuration is read from a YAML file, with every field defaulted:
//
//	engine:
//	  url: http://127.0.0.1:5001/api
//	  timeout: 5s
//	sync:
//	  interval: 3s
//	  historyLimit: 10
//	compare:
//	  maxConcurrency: 8
//	dashboard:
//	  enabled: true
//	  address: 127.0.0.1:8090
//	  username: admin
//	  passwordHash: "${MVCCVIEW_DASHBOARD_PASSWORD_HASH}"
//	notify:
//	  ttl: 3s
//	metrics:
//	  enabled: true
//	  path: /metrics
//	logging:
//	  level: info
//	  format: text
//	  output: stderr
//
// # Loading Configuration
//
//	cfg, err := config.LoadConfig("/etc/mvccview/config.yaml")
//	if err != nil {
//	    return err
//	}
//	if errs := config.ValidateConfig(cfg); len(errs) > 0 {
//	    // report errs
//	}
//
// # Environment Variables
//
// ${VAR} and ${VAR:-default} are substituted before parsing. The CLI also
// applies overrides following the pattern MVCCVIEW_<SECTION>_<KEY>, for
// example MVCCVIEW_ENGINE_URL or MVCCVIEW_LOGGING_LEVEL.
//
// # Hot Reload
//
// Watcher polls the file and hands validated changes to a callback. The
// dashboard applies the sync interval and notification TTL live.
package config
