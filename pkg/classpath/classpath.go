package classpath

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/matzehuels/leakpath/pkg/chain"
)

// ErrClassNotFound is returned when no classpath entry defines a class.
var ErrClassNotFound = errors.New("class not found on classpath")

// entry is one classpath element.
type entry interface {
	open(path string) (io.ReadCloser, error)
	io.Closer
}

type dirEntry struct{ root string }

func (d dirEntry) open(path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.root, filepath.FromSlash(path)))
}

func (dirEntry) Close() error { return nil }

type zipEntry struct{ rc *zip.ReadCloser }

func (z zipEntry) open(path string) (io.ReadCloser, error) {
	return z.rc.Open(path)
}

func (z zipEntry) Close() error { return z.rc.Close() }

type lookup struct {
	header *Header
	err    error
}

// Classpath finds classes in an ordered list of directories and jar/zip
// archives. Lookups are memoized, failures included. A Classpath is safe
// for concurrent use.
type Classpath struct {
	entries []entry

	mu    sync.Mutex
	cache map[string]lookup
}

// New opens the given directories and archives. Archives stay open until
// [Classpath.Close].
func New(paths ...string) (*Classpath, error) {
	cp := &Classpath{cache: make(map[string]lookup)}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			cp.Close()
			return nil, fmt.Errorf("classpath entry %s: %w", p, err)
		}
		if info.IsDir() {
			cp.entries = append(cp.entries, dirEntry{root: p})
			continue
		}
		rc, err := zip.OpenReader(p)
		if err != nil {
			cp.Close()
			return nil, fmt.Errorf("classpath entry %s: %w", p, err)
		}
		cp.entries = append(cp.entries, zipEntry{rc: rc})
	}
	return cp, nil
}

// Split splits a classpath string on the OS list separator, dropping empty
// elements.
func Split(list string) []string {
	var out []string
	for _, p := range filepath.SplitList(list) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the header of the class with the given binary name, such
// as com.example.Outer$1. The first entry defining the class wins.
func (cp *Classpath) Lookup(className string) (*Header, error) {
	cp.mu.Lock()
	if l, ok := cp.cache[className]; ok {
		cp.mu.Unlock()
		return l.header, l.err
	}
	cp.mu.Unlock()

	h, err := cp.find(className)

	cp.mu.Lock()
	cp.cache[className] = lookup{header: h, err: err}
	cp.mu.Unlock()
	return h, err
}

// Interfaces returns the interfaces directly implemented by className.
func (cp *Classpath) Interfaces(className string) ([]string, error) {
	h, err := cp.Lookup(className)
	if err != nil {
		return nil, err
	}
	return h.Interfaces, nil
}

// Len returns the number of entries.
func (cp *Classpath) Len() int {
	return len(cp.entries)
}

// Close closes the archives.
func (cp *Classpath) Close() error {
	var errs []error
	for _, e := range cp.entries {
		errs = append(errs, e.Close())
	}
	cp.entries = nil
	return errors.Join(errs...)
}

func (cp *Classpath) find(className string) (*Header, error) {
	path := strings.ReplaceAll(className, ".", "/") + ".class"
	for _, e := range cp.entries {
		f, err := e.open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		h, err := ReadHeader(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return h, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrClassNotFound, className)
}

var _ chain.InterfaceResolver = (*Classpath)(nil)
