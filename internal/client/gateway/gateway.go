// Package gateway is the device's only path to cloud rows. It translates
// records between local and cloud field names, stamps the session owner on
// every outgoing row and bounds each call with the request timeout.
//
// Single-record calls (Upsert, Delete) are best effort: without a session
// they are no-ops. Bulk calls (PushAll, PullAll, Count) need a session and
// return client.ErrUnauthenticated otherwise.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/client/client"
	"github.com/dmitrijs2005/gigbook/internal/client/models"
	"github.com/dmitrijs2005/gigbook/internal/logging"
	"github.com/dmitrijs2005/gigbook/internal/netx"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/dmitrijs2005/gigbook/internal/syncpb"
)

// Transport is the subset of client.Client the gateway drives.
type Transport interface {
	Session() (client.Session, bool)
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, collection string, row syncpb.Row) (syncpb.Row, error)
	Delete(ctx context.Context, collection, id string) (bool, error)
	PushAll(ctx context.Context, collection string, rows []syncpb.Row) ([]syncpb.Row, error)
	PullAll(ctx context.Context, current string, platforms, collections []string) (map[string][]syncpb.Row, error)
	Count(ctx context.Context, collection, current, platform string) (int64, error)
	PresignMedia(ctx context.Context, filename string) (*syncpb.PresignMediaResponse, error)
}

type Gateway struct {
	transport  Transport
	platform   schema.Platform
	timeout    time.Duration
	logger     logging.Logger
	httpClient *http.Client
}

// New builds a gateway for a device running on platform. A zero timeout
// leaves calls bounded only by the caller's context.
func New(t Transport, platform schema.Platform, timeout time.Duration, l logging.Logger) *Gateway {
	return &Gateway{
		transport:  t,
		platform:   platform,
		timeout:    timeout,
		logger:     l.With("module", "gateway"),
		httpClient: http.DefaultClient,
	}
}

func (g *Gateway) Platform() schema.Platform {
	return g.platform
}

// Session exposes the transport session so callers can decide whether a
// sync is possible at all.
func (g *Gateway) Session() (client.Session, bool) {
	return g.transport.Session()
}

// Ping checks that the server answers within the request timeout.
func (g *Gateway) Ping(ctx context.Context) error {
	ctx, cancel := g.callContext(ctx)
	defer cancel()
	return g.transport.Ping(ctx)
}

func (g *Gateway) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *Gateway) encode(c schema.Collection, rec *models.Record, owner string) syncpb.Row {
	local := rec.Local()
	local[schema.KeyOwnerID] = owner
	return schema.ToCloud(c, local)
}

func decode(c schema.Collection, row syncpb.Row) (*models.Record, error) {
	return models.RecordFromLocal(schema.FromCloud(c, row))
}

// Upsert stores rec in the cloud and returns it as stored, carrying the
// server's lastSyncedAt. It returns (nil, nil) when there is no session.
func (g *Gateway) Upsert(ctx context.Context, c schema.Collection, rec *models.Record) (*models.Record, error) {
	sess, ok := g.transport.Session()
	if !ok {
		return nil, nil
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	row, err := g.transport.Upsert(ctx, string(c), g.encode(c, rec, sess.UserID))
	if err != nil {
		return nil, fmt.Errorf("upsert %s/%s: %w", c, rec.ID, err)
	}
	return decode(c, row)
}

// Delete removes the caller's row with this id. Without a session it does
// nothing.
func (g *Gateway) Delete(ctx context.Context, c schema.Collection, id string) error {
	if _, ok := g.transport.Session(); !ok {
		return nil
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	if _, err := g.transport.Delete(ctx, string(c), id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", c, id, err)
	}
	return nil
}

// PushAll upserts recs in one call. Rows not listed are left alone.
func (g *Gateway) PushAll(ctx context.Context, c schema.Collection, recs []*models.Record) ([]*models.Record, error) {
	sess, ok := g.transport.Session()
	if !ok {
		return nil, client.ErrUnauthenticated
	}
	if len(recs) == 0 {
		return nil, nil
	}

	rows := make([]syncpb.Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, g.encode(c, r, sess.UserID))
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	stored, err := g.transport.PushAll(ctx, string(c), rows)
	if err != nil {
		return nil, fmt.Errorf("push %s: %w", c, err)
	}

	out := make([]*models.Record, 0, len(stored))
	for _, row := range stored {
		rec, err := decode(c, row)
		if err != nil {
			return out, fmt.Errorf("push %s: %w", c, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// PullAll fetches every collection restricted to platforms. The server
// clamps the list further by tier, so the bundle never holds a record the
// account may not see. Undecodable rows are logged and skipped.
func (g *Gateway) PullAll(ctx context.Context, platforms []schema.Platform) (models.Bundle, error) {
	if _, ok := g.transport.Session(); !ok {
		return nil, client.ErrUnauthenticated
	}

	names := make([]string, len(platforms))
	for i, p := range platforms {
		names[i] = string(p)
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	resp, err := g.transport.PullAll(ctx, string(g.platform), names, nil)
	if err != nil {
		return nil, fmt.Errorf("pull: %w", err)
	}

	bundle := make(models.Bundle, len(resp))
	for name, rows := range resp {
		c, err := schema.ParseCollection(name)
		if err != nil {
			g.logger.Warn(ctx, "Skipping collection", "collection", name, "error", err)
			continue
		}
		recs := make([]*models.Record, 0, len(rows))
		for _, row := range rows {
			rec, err := decode(c, row)
			if err != nil {
				g.logger.Warn(ctx, "Skipping row", "collection", c, "error", err)
				continue
			}
			recs = append(recs, rec)
		}
		bundle[c] = recs
	}
	return bundle, nil
}

// Count reports how many of the caller's rows of c live on platform. The
// server refuses platforms the account's tier cannot read from this device.
func (g *Gateway) Count(ctx context.Context, c schema.Collection, platform schema.Platform) (int64, error) {
	if _, ok := g.transport.Session(); !ok {
		return 0, client.ErrUnauthenticated
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	n, err := g.transport.Count(ctx, string(c), string(g.platform), string(platform))
	if err != nil {
		return 0, fmt.Errorf("count %s/%s: %w", c, platform, err)
	}
	return n, nil
}

// UploadMedia stores data under the caller's media prefix and returns its
// durable public URL. Failures are logged and reported as ("", false).
func (g *Gateway) UploadMedia(ctx context.Context, data []byte, filename string) (string, bool) {
	if _, ok := g.transport.Session(); !ok {
		return "", false
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	presigned, err := g.transport.PresignMedia(ctx, filename)
	if err != nil {
		g.logger.Error(ctx, "Presign failed", "file", filename, "error", err)
		return "", false
	}
	if presigned.UploadURL == "" || presigned.PublicURL == "" {
		g.logger.Error(ctx, "Presign failed", "file", filename, "error", client.ErrNoMediaURL)
		return "", false
	}

	if err := netx.UploadToPresignedURL(ctx, g.httpClient, presigned.UploadURL, netx.ContentTypeFor(filename), data); err != nil {
		g.logger.Error(ctx, "Upload failed", "key", presigned.Key, "error", err)
		return "", false
	}

	g.logger.Info(ctx, "Uploaded media", "key", presigned.Key, "bytes", len(data))
	return presigned.PublicURL, true
}
