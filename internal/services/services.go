package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdftoolbox/internal/gcp"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
)

// DefaultUploadConcurrency bounds parallel object transfers.
const DefaultUploadConcurrency = 10

// ObjectStore reads and writes whole objects. *gcp.Storage implements it.
type ObjectStore interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Write(ctx context.Context, bucket, object string, data []byte) error
}

// JobStore persists job records. *gcp.JobStore implements it.
type JobStore interface {
	FindByHash(ctx context.Context, fileHash string) (string, bool, error)
	Create(ctx context.Context, job models.Job) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// WorkflowTrigger starts a follow-up workflow. *gcp.Workflows implements it.
type WorkflowTrigger interface {
	Trigger(ctx context.Context, payload any) (string, error)
}

// uploadOutputs writes files to bucket under prefix/ and returns their URIs in
// the order of files.
func uploadOutputs(ctx context.Context, logCtx *slog.Logger, objects ObjectStore, bucket, prefix string, files []models.File, limit int) ([]string, error) {
	logCtx.Info("Starting concurrent upload of outputs.", "count", len(files))
	uris := make([]string, len(files))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(limit, 1))
	for i, f := range files {
		object := path.Join(prefix, f.Name)
		uris[i] = gcp.URI(bucket, object)
		eg.Go(func() error {
			if err := objects.Write(gctx, bucket, object, f.Data); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	logCtx.Info("All outputs uploaded successfully.")
	return uris, nil
}

// downloadAll fetches every gs:// URI concurrently. Each file is named after
// the last element of its object path.
func downloadAll(ctx context.Context, objects ObjectStore, uris []string, limit int) ([]models.File, error) {
	type location struct{ bucket, object string }
	locs := make([]location, len(uris))
	for i, uri := range uris {
		bucket, object, err := gcp.ParseURI(uri)
		if err != nil {
			return nil, models.Invalidf("%v", err)
		}
		locs[i] = location{bucket, object}
	}

	files := make([]models.File, len(uris))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(limit, 1))
	for i, loc := range locs {
		eg.Go(func() error {
			data, err := objects.Read(gctx, loc.bucket, loc.object)
			if err != nil {
				return err
			}
			files[i] = models.File{Name: path.Base(loc.object), Data: data}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func fileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
