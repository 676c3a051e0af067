package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yourusername/batch-download-go/internal/domain"
	"go.uber.org/zap"
)

// HTTPDownloader fetches files over HTTP(S), resuming with range requests.
// It implements both domain.FileDownloader and domain.FileSizeRequester.
type HTTPDownloader struct {
	client     *http.Client
	bufferSize int
	logger     *zap.Logger
}

// NewHTTPDownloader creates a downloader reading bufferSize bytes per chunk.
// requestTimeout bounds the wait for response headers, not the transfer.
func NewHTTPDownloader(config *domain.DownloadConfig, logger *zap.Logger) *HTTPDownloader {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   config.ConcurrentLimit * 2,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: config.RequestTimeout,
		DisableCompression:    true, // byte offsets refer to the raw body
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = 32 * 1024
	}

	return &HTTPDownloader{
		client:     &http.Client{Transport: transport},
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// Fetch streams the body of networkAddress from offset, handing each read to onChunk.
// A server ignoring the range gets the first offset bytes skipped.
func (d *HTTPDownloader) Fetch(ctx context.Context, networkAddress string, offset int64, onChunk domain.ChunkHandler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, networkAddress, nil)
	if err != nil {
		return domain.NewDownloadError(domain.ErrorNetwork, "fetch", err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return domain.NewDownloadError(domain.ErrorNetwork, "fetch", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPartialContent:
	case resp.StatusCode == http.StatusOK:
		if offset > 0 {
			d.logger.Debug("Server ignored range request, skipping already stored bytes",
				zap.String("address", networkAddress),
				zap.String("skip", humanize.Bytes(uint64(offset))))
			if _, err := io.CopyN(io.Discard, resp.Body, offset); err != nil {
				return domain.NewDownloadError(domain.ErrorNetwork, "fetch", err)
			}
		}
	default:
		return domain.NewDownloadError(domain.ErrorNetwork, "fetch", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	buf := make([]byte, d.bufferSize)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if err := onChunk(chunk); err != nil {
				return fmt.Errorf("chunk rejected: %w", err)
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return domain.NewDownloadError(domain.ErrorNetwork, "fetch", readErr)
		}
	}
}

// RequestFileSize asks the server for the size of networkAddress. HEAD is
// tried first; servers that do not report a length there are asked with a
// one-byte range request.
func (d *HTTPDownloader) RequestFileSize(ctx context.Context, networkAddress string) (int64, error) {
	size, err := d.headSize(ctx, networkAddress)
	if err == nil && size > 0 {
		return size, nil
	}
	if err != nil {
		d.logger.Debug("HEAD request failed, probing with range request",
			zap.String("address", networkAddress),
			zap.Error(err))
	}
	return d.rangeSize(ctx, networkAddress)
}

func (d *HTTPDownloader) headSize(ctx context.Context, networkAddress string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, networkAddress, nil)
	if err != nil {
		return 0, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return resp.ContentLength, nil
}

func (d *HTTPDownloader) rangeSize(ctx context.Context, networkAddress string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, networkAddress, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		_, _, total, err := ParseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return 0, err
		}
		if total < 0 {
			return 0, errors.New("server does not report the total size")
		}
		return total, nil
	case http.StatusOK:
		if resp.ContentLength < 0 {
			return 0, errors.New("server does not report the content length")
		}
		return resp.ContentLength, nil
	default:
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// ParseContentRange parses a Content-Range header value.
// Returns start, end, total bytes. Total is -1 if unknown.
func ParseContentRange(header string) (start, end, total int64, err error) {
	// Format: bytes start-end/total or bytes start-end/*
	header = strings.TrimPrefix(header, "bytes ")
	parts := strings.Split(header, "/")
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	rangeParts := strings.Split(parts[0], "-")
	if len(rangeParts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	start, err = strconv.ParseInt(rangeParts[0], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	end, err = strconv.ParseInt(rangeParts[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}

	if parts[1] == "*" {
		return start, end, -1, nil
	}
	total, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}
	return start, end, total, nil
}
