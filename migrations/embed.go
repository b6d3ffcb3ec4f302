// Package migrations embeds the SQL schema files into the binary so a node
// can create its state database without any files on disk.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root.
//
//go:embed *.sql
var FS embed.FS
