package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"

	"github.com/seitarof/gen-inspection/internal/coordinate"
)

const remoteTimeout = 30 * time.Second

// Remote is an HTTP repository using the same layout as Local.
type Remote struct {
	baseURL string
	client  *resty.Client
}

// NewRemote builds a remote repository client. Requests are attempted once.
func NewRemote(baseURL string) *Remote {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(remoteTimeout).
		SetRetryCount(0)
	return &Remote{baseURL: baseURL, client: client}
}

// String returns the base URL.
func (r *Remote) String() string {
	return r.baseURL
}

// Fetch downloads the descriptor and archive of c into local.
func (r *Remote) Fetch(ctx context.Context, c coordinate.Coordinate, local *Local) error {
	meta, err := r.get(ctx, c, c.DescriptorName())
	if err != nil {
		return err
	}
	archive, err := r.get(ctx, c, c.Filename())
	if err != nil {
		return err
	}
	if err := local.store(c, meta, archive); err != nil {
		return err
	}
	log.Debug("downloaded artifact", "coordinate", c, "remote", r.baseURL)
	return nil
}

func (r *Remote) get(ctx context.Context, c coordinate.Coordinate, name string) ([]byte, error) {
	path := "/" + c.Dir() + "/" + name
	resp, err := r.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s%s: %w", r.baseURL, path, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("%s at %s: %w", c, r.baseURL, ErrNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s%s: %s", r.baseURL, path, resp.Status())
	}
	return resp.Body(), nil
}
