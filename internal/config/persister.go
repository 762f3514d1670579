package config

import (
	"crypto/sha256"
	"slices"
	"sync"
)

// recentWrites is how many self-written file versions are remembered.
const recentWrites = 16

// FilePersister writes favorites mutations back to the config file.
// Each write re-reads the file so keys edited by hand are preserved.
type FilePersister struct {
	mu      sync.Mutex
	path    string
	written [][sha256.Size]byte
}

// NewFilePersister creates a FilePersister for path (default path if empty).
func NewFilePersister(path string) *FilePersister {
	if path == "" {
		path = ConfigPath()
	}
	return &FilePersister{path: path}
}

// Path returns the config file being written.
func (p *FilePersister) Path() string {
	return p.path
}

// AddPinned persists a pin.
func (p *FilePersister) AddPinned(id string) error {
	return p.update(func(a *AppListConfig) bool { return a.AddPinned(id) })
}

// RemovePinned persists an unpin.
func (p *FilePersister) RemovePinned(id string) error {
	return p.update(func(a *AppListConfig) bool { return a.RemovePinned(id) })
}

// UpdatePinned persists a full favorites sequence.
func (p *FilePersister) UpdatePinned(ids []string) error {
	return p.update(func(a *AppListConfig) bool { return a.UpdatePinned(ids) })
}

// Wrote reports whether data is a file version this persister produced
// recently. A watcher uses it to skip reloading its own writes, which
// may lag behind favorites changes still queued for writing.
func (p *FilePersister) Wrote(data []byte) bool {
	sum := sha256.Sum256(data)

	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.written, sum)
}

func (p *FilePersister) update(fn func(a *AppListConfig) bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cfg, err := LoadConfig(p.path)
	if err != nil {
		return err
	}
	if !fn(&cfg.AppList) {
		return nil
	}

	data, err := cfg.save(p.path)
	if err != nil {
		return err
	}
	p.remember(data)
	return nil
}

func (p *FilePersister) remember(data []byte) {
	p.written = append(p.written, sha256.Sum256(data))
	if len(p.written) > recentWrites {
		p.written = slices.Delete(p.written, 0, len(p.written)-recentWrites)
	}
}
