package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"shellcast/internal/msg"
)

// fetcher performs the HTTP transfer for one task. Data is written to a
// temporary file next to the target and renamed into place only on
// complete success, so a crash or failure never leaves a partial file
// at the final path.
type fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries uint64
}

func newFetcher(maxRetries uint64) *fetcher {
	return &fetcher{
		client: &http.Client{
			Timeout: 30 * time.Minute, // large media files
		},
		userAgent:  "shellcast/1.0",
		maxRetries: maxRetries,
	}
}

// fetch downloads the task's episode, retrying transient failures with
// exponential backoff. File-level failures are permanent; request and
// stream failures retry up to maxRetries.
func (f *fetcher) fetch(ctx context.Context, task Task) (string, error) {
	var path string
	operation := func() error {
		p, err := f.fetchOnce(ctx, task)
		if err != nil {
			var de *Error
			if errors.As(err, &de) && (de.Kind == msg.FileCreateError || de.Kind == msg.FileWriteError) {
				return backoff.Permanent(err)
			}
			return err
		}
		path = p
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), f.maxRetries), ctx)
	if err := backoff.Retry(operation, bo); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fetcher) fetchOnce(ctx context.Context, task Task) (string, error) {
	finalPath := filepath.Join(task.Dir, Filename(task.Episode))
	tempPath := finalPath + ".part"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, task.Episode.URL, nil)
	if err != nil {
		return "", &Error{Kind: msg.RequestError, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{Kind: msg.RequestError, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Kind: msg.RequestError, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	file, err := os.Create(tempPath)
	if err != nil {
		return "", &Error{Kind: msg.FileCreateError, Err: err}
	}

	if err := copyBody(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tempPath)
		return "", err
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return "", &Error{Kind: msg.FileWriteError, Err: err}
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return "", &Error{Kind: msg.FileWriteError, Err: err}
	}

	return finalPath, nil
}

// copyBody streams the response body to the file, keeping read failures
// (data stream) distinct from write failures (disk).
func copyBody(file *os.File, body io.Reader) error {
	buf := make([]byte, 32*1024)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return &Error{Kind: msg.FileWriteError, Err: werr}
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			return &Error{Kind: msg.DataStreamError, Err: rerr}
		}
	}
}
