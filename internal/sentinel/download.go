package sentinel

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/forest-guardian/sentinel-scl/internal/cache"
	"github.com/schollz/progressbar/v3"
)

// ManifestDir is the directory, relative to a download directory, holding
// records of completed downloads.
const ManifestDir = ".manifest"

// ErrChecksumMismatch is returned when a verified download does not match the
// catalog MD5.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// DownloadInfo describes a product archive on local disk.
type DownloadInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	MD5          string    `json:"md5"`
	Verified     bool      `json:"verified"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// Download fetches the product archive for entry into destDir. With verify
// set, the MD5 published by the catalog is checked before the file is moved
// into place. A product already recorded in the manifest with a matching file
// size is not downloaded again.
func (c *Client) Download(ctx context.Context, entry Entry, destDir string, verify bool) (DownloadInfo, error) {
	if c.session == nil {
		return DownloadInfo{}, fmt.Errorf("%w: session not opened", ErrSession)
	}
	if entry.ID == "" {
		return DownloadInfo{}, errors.New("entry has no identifier")
	}

	manifest := cache.NewFileCache[DownloadInfo](filepath.Join(destDir, ManifestDir))
	key := manifest.GenerateKey(entry.ID)
	if info, ok := manifest.Get(key); ok && (info.Verified || !verify) && fileHasSize(info.Path, info.Size) {
		slog.Info("product already downloaded", "id", entry.ID, "path", info.Path)
		return info, nil
	}

	name := entry.Title
	if name == "" {
		name = entry.ID
	}
	finalPath := filepath.Join(destDir, name+".zip")

	info, err := c.downloadFile(ctx, entry, finalPath, verify)
	if err != nil {
		return DownloadInfo{}, err
	}

	if err := manifest.Set(key, info); err != nil {
		slog.Warn("failed to record download", "id", entry.ID, "error", err)
	}
	return info, nil
}

func (c *Client) downloadFile(ctx context.Context, entry Entry, finalPath string, verify bool) (info DownloadInfo, err error) {
	productURL := fmt.Sprintf("%s/Products(%s)/$value", c.downloadURL, entry.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return DownloadInfo{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.session.Do(req)
	if err != nil {
		return DownloadInfo{}, fmt.Errorf("download %s: %w", entry.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return DownloadInfo{}, fmt.Errorf("download %s: status %d: %s", entry.ID, resp.StatusCode, strings.TrimSpace(string(preview)))
	}

	tmpPath := finalPath + ".incomplete"
	out, err := os.Create(tmpPath)
	if err != nil {
		return DownloadInfo{}, fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		out.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	total := resp.ContentLength
	if total < 0 {
		total = entry.ContentLength
	}
	var bar *progressbar.ProgressBar
	if c.progress {
		bar = progressbar.DefaultBytes(total, "Downloading "+entry.Title)
	} else {
		bar = progressbar.DefaultBytesSilent(total, "Downloading "+entry.Title)
	}

	expected := entry.MD5()
	var hasher hash.Hash
	writers := []io.Writer{out, bar}
	if verify && expected != "" {
		hasher = md5.New()
		writers = append(writers, hasher)
	}

	size, err := io.Copy(io.MultiWriter(writers...), resp.Body)
	if err != nil {
		return DownloadInfo{}, fmt.Errorf("copy data: %w", err)
	}
	bar.Finish()

	if hasher != nil {
		sum := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(sum, expected) {
			return DownloadInfo{}, fmt.Errorf("%w for %s: expected %s got %s", ErrChecksumMismatch, entry.ID, expected, sum)
		}
	} else if verify {
		slog.Warn("catalog published no MD5, download not verified", "id", entry.ID)
	}

	if err = out.Close(); err != nil {
		return DownloadInfo{}, fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, finalPath); err != nil {
		return DownloadInfo{}, fmt.Errorf("rename temp file: %w", err)
	}

	return DownloadInfo{
		ID:           entry.ID,
		Title:        entry.Title,
		Path:         finalPath,
		Size:         size,
		MD5:          expected,
		Verified:     hasher != nil,
		DownloadedAt: time.Now().UTC(),
	}, nil
}

func fileHasSize(path string, size int64) bool {
	st, err := os.Stat(path)
	if err != nil || st.IsDir() {
		return false
	}
	return st.Size() == size
}
