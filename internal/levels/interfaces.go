package levels

import (
	"context"
	"io/fs"
)

type Loader interface {
	LoadPacks(ctx context.Context, fsys fs.FS) ([]Pack, error)
	LoadDir(ctx context.Context, root string) ([]Pack, error)
	FindLevel(packs []Pack, packID string, levelID string) (Pack, Level, error)
}
