// Command membersyncctl synchronises CRM membership records onto the roles
// and capabilities of local user accounts.
//
// Association rules map a membership type to a permission effect: either a
// pair of roles (one for members in good standing, one for lapsed members)
// or a capability named after the membership type. Syncs run per contact,
// from CRM membership events, or as resumable batch runs over the whole
// CRM population.
//
// # Quick Start
//
//	# Run database migrations
//	membersyncctl db migrate
//
//	# Configure a rule
//	membersyncctl rule set 5 --current 1,2 --expired 3,4 \
//	    --current-role member --expired-role expired_member
//
//	# Sync everything
//	membersyncctl sync run
//
//	# Start the admin API
//	membersyncctl server
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string
//   - AUDIT_DATABASE_URL: optional database for audit messages
//   - MEMBERSYNC_CONFIG_PATH: directory holding membersync.yml
//   - MEMBERSYNC_LOG_LEVEL: Log level (debug, info, warn, error)
//   - PORT: Server port (default: 8000)
package main
