// Package appfs embeds the application's static assets (database migrations).
package appfs

import "embed"

//go:embed migrations
var FS embed.FS
