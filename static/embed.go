// Package static embeds the web UI assets served under /static and the
// single-page shell served at the root.
package static

import "embed"

//go:embed index.html dist
var FS embed.FS
