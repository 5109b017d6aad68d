package fs

import (
	"context"

	"github.com/go-git/go-billy/v5"
)

// wraps Rename with retry logic on transient errors.
// It is the atomic promotion step for downloaded files and ledger rewrites.

func renameWithRetry(ctx context.Context, bfs billy.Basic, oldPath, newPath string) error {
	return retry(ctx, "rename", func() error {
		return bfs.Rename(oldPath, newPath)
	})
}
