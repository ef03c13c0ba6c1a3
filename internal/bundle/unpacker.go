package bundle

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/probtrack/internal/client/storage"
	"github.com/iudanet/probtrack/internal/crypto"
	"github.com/iudanet/probtrack/pkg/api"
)

// Статусы загрузки bundle
const (
	StatusIdle        = "idle"
	StatusDownloading = "downloading"
	StatusExtracting  = "extracting"
	StatusComplete    = "complete"
	StatusError       = "error"
)

// ErrChecksumMismatch содержимое файла не совпало с манифестом
var ErrChecksumMismatch = errors.New("bundle file checksum mismatch")

// ProgressFunc вызывается после извлечения каждого файла
type ProgressFunc func(extracted, total int)

// Unpacker скачивает bundle и раскладывает файлы в bundle tier кеша.
// Состояние загрузки устойчиво: Status() отвечает и после перезапуска.
type Unpacker struct {
	httpClient *http.Client
	cache      storage.CacheStorage
	metadata   storage.MetadataStorage
	logger     *slog.Logger
	baseURL    string
	onProgress ProgressFunc
}

// NewUnpacker создает загрузчик bundle. onProgress может быть nil.
func NewUnpacker(
	baseURL string,
	cache storage.CacheStorage,
	metadata storage.MetadataStorage,
	logger *slog.Logger,
	onProgress ProgressFunc,
) *Unpacker {
	return &Unpacker{
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		cache:      cache,
		metadata:   metadata,
		logger:     logger,
		baseURL:    baseURL,
		onProgress: onProgress,
	}
}

// Status возвращает сохраненное состояние последней загрузки
func (u *Unpacker) Status(ctx context.Context) (*storage.BundleState, error) {
	return u.metadata.GetBundleState(ctx)
}

// Download проверяет манифест на сервере и при необходимости скачивает
// и извлекает архив. Если сохраненная версия совпадает и извлечение
// завершалось полностью, сеть почти не используется. Отмена ctx
// останавливает извлечение на границе файла; частичный прогресс
// сохраняется в состоянии.
func (u *Unpacker) Download(ctx context.Context) (*storage.BundleState, error) {
	manifest, err := u.fetchManifest(ctx)
	if err != nil {
		return u.failState(ctx, err)
	}
	if !manifest.Valid() {
		return u.failState(ctx, fmt.Errorf("inconsistent bundle manifest: version=%d total=%d listed=%d",
			manifest.Version, manifest.TotalFiles, manifest.FileCount()))
	}

	stored, err := u.metadata.GetBundleState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle state: %w", err)
	}

	// Дешевая проверка: версия на сервере не изменилась и прошлое
	// извлечение дошло до конца
	if stored.Status == StatusComplete && stored.Version == manifest.Version {
		u.logger.Debug("Bundle is up to date", "version", manifest.Version)
		return stored, nil
	}

	state := &storage.BundleState{
		Status:     StatusDownloading,
		Version:    manifest.Version,
		TotalFiles: manifest.TotalFiles,
	}
	if err := u.metadata.SaveBundleState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save bundle state: %w", err)
	}

	if err := u.extract(ctx, manifest, state); err != nil {
		return u.failState(ctx, err)
	}

	state.Status = StatusComplete
	state.DownloadedAt = time.Now()
	state.LastError = ""
	if err := u.metadata.SaveBundleState(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save bundle state: %w", err)
	}

	u.logger.Info("Bundle extracted",
		"version", state.Version,
		"files", state.ExtractedFiles,
	)
	return state, nil
}

// fetchManifest скачивает манифест bundle
func (u *Unpacker) fetchManifest(ctx context.Context) (*api.BundleManifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/bundle/"+ManifestName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create manifest request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bundle manifest request returned status %d", resp.StatusCode)
	}

	var manifest api.BundleManifest
	if err := json.NewDecoder(resp.Body).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("failed to decode bundle manifest: %w", err)
	}
	return &manifest, nil
}

// extract скачивает архив и раскладывает файлы в bundle tier,
// проверяя контрольную сумму каждого файла
func (u *Unpacker) extract(ctx context.Context, manifest *api.BundleManifest, state *storage.BundleState) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/bundle/"+ArchiveName, nil)
	if err != nil {
		return fmt.Errorf("failed to create archive request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch bundle archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bundle archive request returned status %d", resp.StatusCode)
	}

	state.Status = StatusExtracting
	if err := u.metadata.SaveBundleState(ctx, state); err != nil {
		return fmt.Errorf("failed to save bundle state: %w", err)
	}

	gr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	for {
		// Отмена проверяется на границе файла: CLEAR_ALL_CACHES
		// прерывает загрузку не дожидаясь конца архива
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive entry: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", hdr.Name, err)
		}

		want, ok := manifest.Checksums[hdr.Name]
		if !ok {
			return fmt.Errorf("archive entry %s is not listed in manifest", hdr.Name)
		}
		if err := crypto.VerifyContentHash(data, want); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrChecksumMismatch, hdr.Name, err)
		}

		entry := &storage.CacheEntry{
			Content:  data,
			Hash:     want,
			StoredAt: manifest.CreatedAt, // живой контент свежее bundle побеждает
		}
		if err := u.cache.PutEntry(ctx, storage.TierBundle, hdr.Name, entry); err != nil {
			return fmt.Errorf("failed to store %s: %w", hdr.Name, err)
		}

		state.ExtractedFiles++
		if err := u.metadata.SaveBundleState(ctx, state); err != nil {
			return fmt.Errorf("failed to save bundle state: %w", err)
		}
		if u.onProgress != nil {
			u.onProgress(state.ExtractedFiles, state.TotalFiles)
		}
	}

	if state.ExtractedFiles != state.TotalFiles {
		return fmt.Errorf("archive contained %d files, manifest lists %d",
			state.ExtractedFiles, state.TotalFiles)
	}
	return nil
}

// failState сохраняет ошибочное состояние, не теряя счетчик
// уже извлеченных файлов
func (u *Unpacker) failState(ctx context.Context, cause error) (*storage.BundleState, error) {
	state, err := u.metadata.GetBundleState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle state: %w", err)
	}
	state.Status = StatusError
	state.LastError = cause.Error()
	if err := u.metadata.SaveBundleState(ctx, state); err != nil {
		u.logger.Error("Failed to persist bundle error state", "error", err)
	}
	return state, cause
}
