package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// maxPresignedDownload caps how much of a presigned object is read.
const maxPresignedDownload = 64 << 20

// DownloadPresignedURL fetches an object through a presigned GET URL. The
// URL carries its own credentials, so no signing happens here.
func DownloadPresignedURL(ctx context.Context, hc *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPresignedDownload+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPresignedDownload {
		return nil, fmt.Errorf("download exceeds %d bytes", maxPresignedDownload)
	}
	return data, nil
}
