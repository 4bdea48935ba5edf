// Package config provides configuration management for membersync.
//
// Configuration is read from ${MEMBERSYNC_CONFIG_PATH}/membersync.yml
// (default /etc/membersync/membersync.yml) and then overridden by
// environment variables. Each attribute remembers whether its value came
// from the default, the file or the environment.
//
// # Key Configuration Options
//
//   - MEMBERSYNC_SYNC_METHOD: role or capability
//   - MEMBERSYNC_BATCH_SIZE: memberships per batch step
//   - MEMBERSYNC_CREATE_USERS: create accounts for unlinked contacts
//   - MEMBERSYNC_DRY_RUN: simulate batch runs
//   - MEMBERSYNC_CAPABILITY_PREFIX: prefix of capability names
//
// Connection settings are read directly from the environment by the
// commands that need them: DATABASE_URL, AUDIT_DATABASE_URL and PORT.
package config
