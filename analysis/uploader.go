package analysis

import (
	"context"
	"os"

	"github.com/nijaru/vidsight/errors"
	"github.com/nijaru/vidsight/models"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// AssetStore is the remote file store.
type AssetStore interface {
	Upload(ctx context.Context, path, mimeType string) (*models.Asset, error)
	Get(ctx context.Context, name string) (*models.Asset, error)
	Delete(ctx context.Context, name string) error
}

type Uploader struct {
	Store   AssetStore
	TempDir string
}

// Upload stages the payload in a temporary file and sends it to the store.
// The temporary file is removed on every path out of Upload.
func (u *Uploader) Upload(ctx context.Context, p *models.Payload) (*models.Asset, error) {
	const op = "Uploader.Upload"

	if p.Empty() {
		return nil, errors.MissingInput(op, MissingInputMessage)
	}

	path, err := writeTempFile(u.TempDir, p)
	if err != nil {
		return nil, errors.Upload(op, err)
	}
	defer removeTempFile(path)

	logrus.WithFields(logrus.Fields{
		"filename":   p.Filename,
		"media_type": p.MediaType,
		"bytes":      len(p.Data),
	}).Info("Uploading video")

	asset, err := u.Store.Upload(ctx, path, p.MediaType)
	if err != nil {
		logrus.WithError(err).WithField("filename", p.Filename).Error("Upload failed")
		return nil, errors.Upload(op, err)
	}

	return asset, nil
}

func writeTempFile(dir string, p *models.Payload) (string, error) {
	f, err := os.CreateTemp(dir, "upload-*"+p.Ext())
	if err != nil {
		return "", pkgerrors.Wrap(err, "create temp file")
	}

	if _, err := f.Write(p.Data); err != nil {
		f.Close()
		removeTempFile(f.Name())
		return "", pkgerrors.Wrap(err, "write temp file")
	}

	if err := f.Close(); err != nil {
		removeTempFile(f.Name())
		return "", pkgerrors.Wrap(err, "close temp file")
	}

	return f.Name(), nil
}

func removeTempFile(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("filename", path).Error("Failed to remove temp file")
	}
}
