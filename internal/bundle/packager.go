// Package bundle собирает и распаковывает offline bundle: tar.gz архив
// с контентом задач и паттернов плюс JSON манифест с контрольными суммами.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/iudanet/probtrack/internal/crypto"
	"github.com/iudanet/probtrack/pkg/api"
)

// Категории контента внутри bundle. Порядок фиксирован, чтобы сборка
// была воспроизводимой.
var bundleCategories = []string{"problems", "patterns", "assets"}

// ArchiveName имя файла архива внутри выходной директории
const ArchiveName = "bundle.tar.gz"

// ManifestName имя файла манифеста рядом с архивом
const ManifestName = "manifest.json"

// Packager собирает bundle из директории с контентом
type Packager struct {
	contentDir string
}

// NewPackager создает сборщик bundle
func NewPackager(contentDir string) *Packager {
	return &Packager{contentDir: contentDir}
}

// Build обходит категории контента, считает контрольные суммы и пишет
// архив с манифестом в outDir. Возвращает собранный манифест.
func (p *Packager) Build(outDir string) (*api.BundleManifest, error) {
	manifest := &api.BundleManifest{
		Version:    time.Now().Unix(),
		CreatedAt:  time.Now().UTC(),
		Categories: make(map[string][]string),
		Checksums:  make(map[string]string),
	}

	// Сначала полный проход по файлам: манифест должен быть
	// готов до начала записи архива
	for _, category := range bundleCategories {
		paths, err := p.collectCategory(category, manifest.Checksums)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			continue
		}
		manifest.Categories[category] = paths
		manifest.TotalFiles += len(paths)
	}

	if manifest.TotalFiles == 0 {
		return nil, fmt.Errorf("no content found under %s", p.contentDir)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	if err := p.writeArchive(filepath.Join(outDir, ArchiveName), manifest); err != nil {
		return nil, err
	}

	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, ManifestName), manifestData, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return manifest, nil
}

// collectCategory собирает относительные пути файлов категории
// и заполняет контрольные суммы
func (p *Packager) collectCategory(category string, checksums map[string]string) ([]string, error) {
	root := filepath.Join(p.contentDir, category)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(p.contentDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}

		checksums[rel] = crypto.ContentHash(data)
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", category, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// writeArchive пишет tar.gz со всеми файлами манифеста в порядке категорий
func (p *Packager) writeArchive(archivePath string, manifest *api.BundleManifest) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	gw, err := gzip.NewWriterLevel(f, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("failed to create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gw)

	for _, category := range bundleCategories {
		for _, rel := range manifest.Categories[category] {
			if err := p.addFile(tw, rel); err != nil {
				return err
			}
		}
	}

	// Закрытие tar writer дописывает завершающие нулевые блоки
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("failed to finalize gzip stream: %w", err)
	}
	return f.Close()
}

func (p *Packager) addFile(tw *tar.Writer, rel string) error {
	path := filepath.Join(p.contentDir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", rel, err)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", rel, err)
	}
	hdr.Name = rel

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", rel, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", rel, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", rel, err)
	}
	return nil
}
