package index

import (
	"log/slog"

	"github.com/starford/nestmaid/internal/metrics"
	"github.com/starford/nestmaid/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are resolved and upserted
//   - files removed from disk are deleted from the index
func Sync(ix *Indexer, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := ix.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		out, err := ix.IndexFile(m.Path, data)
		if err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if out.Result.Error != nil {
			logger.Info("sync: unresolved document",
				slog.String("path", m.Path),
				slog.String("kind", string(out.Result.Error.Kind)),
				slog.String("error", out.Result.Error.Message))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := ix.Forget(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	if n, err := ix.db.Count(); err == nil {
		metrics.DocumentsIndexed.Set(float64(n))
	}
	return nil
}
