package media

import (
	"context"
	"errors"
	"time"
)

// SweepOrphans deletes blobs created before cutoff whose filename is not in
// referenced. Blobs younger than cutoff may belong to an upload whose owner
// record is still being written, and objects not named by NewFilename are
// never touched. Returns the number of blobs removed.
func (p *Pipeline) SweepOrphans(ctx context.Context, referenced map[string]struct{}, cutoff time.Time) (int, error) {
	infos, err := p.Blobs.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, info := range infos {
		if !ValidName(info.Filename) {
			continue
		}
		if _, ok := referenced[info.Filename]; ok {
			continue
		}
		if !info.CreatedAt.Before(cutoff) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		err := p.Blobs.Delete(ctx, info.Filename)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			p.Logger.Error("failed to delete orphan blob", "filename", info.Filename, "error", err)
		default:
			p.Logger.Info("deleted orphan blob", "filename", info.Filename, "size", info.Size)
			removed++
		}
	}
	return removed, nil
}
