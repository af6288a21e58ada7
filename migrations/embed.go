// Package migrations embeds the SQL schema migrations so binaries can run
// them without a copy of the source tree on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
