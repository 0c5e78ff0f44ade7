package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"variation-pipeline/internal/model"
	"variation-pipeline/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// BuildURL substitutes the path-escaped identifier into the URL template
func BuildURL(template, identifier string) string {
	return strings.ReplaceAll(template, "{id}", url.PathEscape(identifier))
}

// FetchAll fetches every identifier. Failures are recorded per identifier and
// never abort the batch. With fetch.workers = 1 identifiers are fetched strictly
// in order.
func (p *Pipeline) FetchAll(ctx context.Context, identifiers []string) model.StageResult {
	tracker := newStageTracker(model.StageFetch, p.logger, p.metrics)
	p.logger.Info("🌐 Starting fetch stage",
		zap.Int("identifiers", len(identifiers)),
		zap.Int("workers", p.cfg.Fetch.Workers),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Fetch.Workers)

	for _, id := range identifiers {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			path, err := p.FetchOne(gctx, id)
			if err != nil {
				tracker.fail(id, err)
				return nil
			}
			tracker.succeed(id, fmt.Sprintf("variation data for %s saved to %s", id, path), zap.String("path", path))
			return nil
		})
	}
	_ = g.Wait()

	return tracker.finish()
}

// FetchOne performs one GET for the identifier and stores the body as
// <json_dir>/<id>_variations.json. On any non-OK status nothing is written.
func (p *Pipeline) FetchOne(ctx context.Context, identifier string) (string, error) {
	target := BuildURL(p.cfg.Fetch.URLTemplate, identifier)
	p.logger.Debug("🌐 GET", zap.String("url", target))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", identifier, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to GET %s: %w", target, err)
	}
	defer resp.Body.Close()
	p.metrics.ObserveFetch(resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &StatusError{Identifier: identifier, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body for %s: %w", identifier, err)
	}
	body = bytes.TrimSpace(body)

	if _, err := DecodeRecordSet(body); err != nil {
		return "", fmt.Errorf("response for %s: %w", identifier, err)
	}

	var indented bytes.Buffer
	if err := json.Indent(&indented, body, "", "    "); err != nil {
		return "", fmt.Errorf("response for %s: %w: %v", identifier, ErrNotRecordSet, err)
	}

	path := p.artifacts.JSONPath(identifier)
	if err := utils.WriteFileAtomic(path, indented.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// DecodeRecordSet decodes a response body or stored artifact
func DecodeRecordSet(data []byte) (*model.RawRecordSet, error) {
	var set model.RawRecordSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRecordSet, err)
	}
	return &set, nil
}
