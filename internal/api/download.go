package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/smarttransit/internal/common"
	"github.com/Veraticus/smarttransit/internal/service"
)

// EndpointReports is the root of backend report files.
const EndpointReports = "/reports"

// Download fetches a backend report file into w. reportType may name a
// sub-resource such as "daily/csv". Transport errors and 5xx
// responses are retried; the body is buffered per attempt so w only ever
// receives one complete file.
func (c *Client) Download(ctx context.Context, reportType string, params url.Values, w io.Writer) (int64, error) {
	if reportType == "" {
		return 0, common.NewUserError("report type is required", common.ErrInvalidConfig)
	}

	segments := strings.Split(strings.Trim(reportType, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	endpoint := EndpointReports + "/" + strings.Join(segments, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var buf bytes.Buffer
	err := common.WithRetry(ctx, "download "+reportType, func(ctx context.Context) error {
		buf.Reset()
		return c.downloadOnce(ctx, endpoint, &buf)
	}, c.retry)
	if err != nil {
		slog.Error("Report download failed", "endpoint", endpoint, "error", err)
		c.notifier.Notify(service.LevelError, fmt.Sprintf("Report download failed: %v", err))
		return 0, common.NewUserError("failed to download report", err)
	}

	n, err := io.Copy(w, &buf)
	if err != nil {
		return n, fmt.Errorf("failed to write report: %w", err)
	}
	c.notifier.Notify(service.LevelSuccess, fmt.Sprintf("Report %s downloaded", reportType))
	return n, nil
}

func (c *Client) downloadOnce(ctx context.Context, endpoint string, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, WithHeader("Accept", "*/*"))
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", common.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &common.HTTPError{
			Method:     http.MethodGet,
			URL:        endpoint,
			Status:     resp.StatusCode,
			Body:       string(snippet),
			RetryAfter: common.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	dst := w
	if c.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("[cyan][bold]Downloading report...[reset]"),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(c.progress); err != nil {
					slog.Warn("Failed to write newline after progress bar", "error", err)
				}
			}),
		)
		defer func() { _ = bar.Finish() }()
		dst = io.MultiWriter(w, bar)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return fmt.Errorf("%w: failed to read report: %w", common.ErrNetwork, err)
	}
	return nil
}
