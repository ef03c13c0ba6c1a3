package api

import "time"

// BundleManifest описывает состав offline bundle. Публикуется отдельным
// JSON файлом рядом с архивом, чтобы клиент мог дешево проверить
// "есть ли новый bundle" без скачивания самого архива.
type BundleManifest struct {
	CreatedAt  time.Time           `json:"created_at"` // время сборки bundle
	Categories map[string][]string `json:"categories"` // относительные пути по категориям
	Checksums  map[string]string   `json:"checksums"`  // path -> blake2b-256 hex
	Version    int64               `json:"version"`    // unix timestamp сборки (монотонный)
	TotalFiles int                 `json:"total_files"`
}

// FileCount возвращает суммарное количество файлов по всем категориям.
// Манифест валиден, только если оно совпадает с TotalFiles.
func (m *BundleManifest) FileCount() int {
	n := 0
	for _, paths := range m.Categories {
		n += len(paths)
	}
	return n
}

// Valid проверяет внутреннюю согласованность манифеста
func (m *BundleManifest) Valid() bool {
	if m.Version <= 0 || m.TotalFiles < 0 {
		return false
	}
	return m.FileCount() == m.TotalFiles
}
