package compare

import (
	"context"
	"errors"

	"github.com/sdejongh/filesage/pkg/remote"
	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

var streamSides = [2]string{"local file", "remote body"}

// StreamCompare compares a local file against a remote body chunk by chunk,
// holding one chunk per side. It stops at the first differing chunk.
func StreamCompare(ctx context.Context, fs storage.Backend, localPath string, client *remote.Client, url string, chunk int) error {
	if chunk <= 0 {
		return xerrors.E(xerrors.KindConfiguration, "stream chunk size must be positive, got %d", chunk)
	}

	file, err := fs.Open(ctx, localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	body, err := client.OpenStream(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	div, err := diffReaders(ctx, file, body, make([]byte, chunk), make([]byte, chunk))
	if err != nil {
		var se *sideError
		if errors.As(err, &se) && se.side == 1 {
			return remoteReadError(url, se.err)
		}
		return err
	}
	if div == nil {
		return nil
	}

	if div.Length {
		return &xerrors.Error{
			Kind:   xerrors.KindLengthMismatch,
			Local:  localPath,
			Remote: url,
			Detail: describe(div, streamSides),
		}
	}
	return &xerrors.Error{
		Kind:    xerrors.KindContentMismatch,
		Variant: xerrors.VariantBinary,
		Local:   localPath,
		Remote:  url,
		Detail:  describe(div, streamSides),
	}
}

// remoteReadError classifies a failure while reading an open remote body.
// These failures are not retried.
func remoteReadError(url string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &xerrors.Error{Kind: xerrors.KindRemoteUnavailable, Remote: url, Detail: "body read failed", Err: err}
}
