// Package packs embeds the level packs that ship with the game.
package packs

import "embed"

//go:embed */pack.yaml */levels/*.yaml
var packFS embed.FS

// FS returns the embedded pack tree, one directory per pack.
func FS() embed.FS {
	return packFS
}
