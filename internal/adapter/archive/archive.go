// Package archive snapshots tenant metadata to timestamped JSON files
// before irreversible deletion, and ages out snapshots older than the
// retention window.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/neomorfeo/tenantctl/internal/domain"
)

// Compile-time check: Archiver implements domain.Archiver.
var _ domain.Archiver = (*Archiver)(nil)

// snapshot is the on-disk document shape.
type snapshot struct {
	Tenant             tenantInfo        `json:"tenant"`
	Domains            []bindingInfo     `json:"domains"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	DeletionDate       time.Time         `json:"deletion_date"`
	CreatedAt          time.Time         `json:"backup_created_at"`
	Extra              map[string]string `json:"extra,omitempty"`
}

type tenantInfo struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Slug                string     `json:"slug"`
	Status              string     `json:"status"`
	Plan                string     `json:"plan"`
	DeletionScheduledAt *time.Time `json:"deletion_scheduled_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type bindingInfo struct {
	Hostname string `json:"hostname"`
}

// Archiver writes snapshots under <root>/<tenant-id>/.
type Archiver struct {
	root string
	now  func() time.Time
}

// New creates an archiver rooted at dir.
func New(dir string) *Archiver {
	return &Archiver{root: dir, now: time.Now}
}

// Snapshot serializes the tenant and its domain bindings to a
// timestamped file under the tenant's backup directory and returns the
// file path.
func (a *Archiver) Snapshot(t domain.Tenant, bindings []domain.DomainBinding) (string, error) {
	dir := filepath.Join(a.root, t.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating backup dir: %w", err)
	}

	now := a.now().UTC()
	doc := snapshot{
		Tenant: tenantInfo{
			ID:                  t.ID,
			Name:                t.Name,
			Slug:                t.Slug,
			Status:              string(t.Status),
			Plan:                string(t.Plan),
			DeletionScheduledAt: t.DeletionScheduledAt,
			CreatedAt:           t.CreatedAt,
		},
		CancellationReason: t.CancellationReason,
		DeletionDate:       now,
		CreatedAt:          now,
	}
	for _, b := range bindings {
		doc.Domains = append(doc.Domains, bindingInfo{Hostname: b.Hostname})
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}

	path := filepath.Join(dir, "backup_"+now.Format("2006-01-02_15-04-05")+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}

	return path, nil
}

// Prune deletes snapshot files older than the retention window, removes
// now-empty tenant directories, and reports files removed and bytes
// freed. A missing backup root means nothing to prune.
func (a *Archiver) Prune(retainFor time.Duration, now time.Time) (domain.PruneResult, error) {
	var result domain.PruneResult

	tenantDirs, err := os.ReadDir(a.root)
	if os.IsNotExist(err) {
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("reading backup root: %w", err)
	}

	cutoff := now.Add(-retainFor)

	for _, entry := range tenantDirs {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(a.root, entry.Name())

		files, err := os.ReadDir(dir)
		if err != nil {
			return result, fmt.Errorf("reading %s: %w", dir, err)
		}

		remaining := 0
		for _, f := range files {
			if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
				remaining++
				continue
			}
			info, err := f.Info()
			if err != nil {
				return result, fmt.Errorf("stat %s: %w", f.Name(), err)
			}
			if !info.ModTime().Before(cutoff) {
				remaining++
				continue
			}
			if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
				return result, fmt.Errorf("removing %s: %w", f.Name(), err)
			}
			result.FilesRemoved++
			result.BytesFreed += info.Size()
		}

		if remaining == 0 {
			// Best-effort: a concurrent write may repopulate the dir.
			os.Remove(dir)
		}
	}

	return result, nil
}
