// Package db embeds the SQL migrations applied by `membersyncctl db migrate`.
package db

import "embed"

// Migrations holds the golang-migrate source files under migrations/.
//
//go:embed migrations/*.sql
var Migrations embed.FS
