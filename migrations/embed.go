// Package migrations embebe los scripts SQL de goose para que cmd/migrate no dependa del directorio de trabajo.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
