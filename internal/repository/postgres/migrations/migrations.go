// Package migrations embeds the SQL migrations for the sync state store.
// The catalog tables themselves belong to the shop and are never migrated
// from here.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
