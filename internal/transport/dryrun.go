package transport

import (
	"context"
	"strconv"
	"sync/atomic"

	"trainfeed/pkg/logx"
)

// DryRun is a Transport that logs what would have been posted and reports
// success. Used by the replay CLI to rehearse a run without credentials.
type DryRun struct {
	Log logx.Logger

	seq atomic.Int64
}

func (d *DryRun) PostUpdate(ctx context.Context, up Update) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	d.Log.Info("dry-run post",
		logx.Int("len", len(up.Text)),
		logx.Int("recipients", len(up.Recipients)),
		logx.Bool("media", up.Media != ""),
		logx.String("text", up.Text))
	return Response{StatusCode: 200, Body: "{}"}, nil
}

func (d *DryRun) UploadMedia(ctx context.Context, data []byte) (MediaRef, Response, error) {
	if err := ctx.Err(); err != nil {
		return "", Response{}, err
	}
	ref := MediaRef("dryrun-" + strconv.FormatInt(d.seq.Add(1), 10))
	d.Log.Info("dry-run media upload", logx.Int("bytes", len(data)), logx.String("ref", string(ref)))
	return ref, Response{StatusCode: 200}, nil
}
