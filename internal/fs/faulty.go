package fs

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Fault describes one way an open file should misbehave: failing writes
// past a byte budget (simulating a crash partway through flushing a chain
// segment or a tree snapshot), failing on Sync (simulating fsync never
// reaching the platter), or failing on Close.
type Fault struct {
	FailAfterBytes int64 // fail writes once this many bytes have been written to the file; -1 disables
	FailOnSync     bool
	FailOnClose    bool
	Err            error // if nil, a generic injected-fault error is returned
}

// FaultyFS wraps a FileSystem and applies Fault rules to the files it
// opens, so SaveChain/SaveSnapshot-style archival code can be tested
// against a write that fails partway through without a real disk fault.
type FaultyFS struct {
	FS      FileSystem
	Default Fault // applied to files matching no rule

	mu    sync.Mutex
	rules []namedFault // matched in order; a later rule overrides an earlier one on the same file

	globalErr   error
	written     int64 // bytes written across every file opened through this FaultyFS
	globalLimit int64 // -1 disables; SetLimit is the common case of "fail after N bytes total"
}

type namedFault struct {
	pattern string
	fault   Fault
}

// NewFaultyFS wraps fs (or fs.Default if nil) with fault injection disabled
// until AddRule or SetLimit configures it.
func NewFaultyFS(underlying FileSystem) *FaultyFS {
	if underlying == nil {
		underlying = Default
	}
	return &FaultyFS{
		FS:          underlying,
		Default:     Fault{FailAfterBytes: -1},
		globalErr:   fmt.Errorf("fs: injected fault"),
		globalLimit: -1,
	}
}

// BytesWritten returns the total bytes written across every file opened
// through this FaultyFS so far.
func (f *FaultyFS) BytesWritten() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

// SetLimit fails any write, on any file opened through this FaultyFS, once
// the cumulative byte count across all of them exceeds limit. This is the
// shortcut for "fail the Nth byte of whatever gets written next," the
// common shape of a snapshot or chain-archival fault-injection test.
func (f *FaultyFS) SetLimit(limit int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.globalLimit = limit
}

// AddRule scopes a Fault to files whose name contains pattern, overriding
// the Default fault for those files. Rules are matched in the order
// added; if more than one pattern matches a given name, the last match
// wins.
func (f *FaultyFS) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, namedFault{pattern: pattern, fault: fault})
}

func (f *FaultyFS) faultFor(name string) Fault {
	f.mu.Lock()
	defer f.mu.Unlock()

	fault := f.Default
	for _, nf := range f.rules {
		if strings.Contains(name, nf.pattern) {
			fault = nf.fault
		}
	}
	if fault.Err == nil {
		fault.Err = f.globalErr
	}
	return fault
}

func (f *FaultyFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	file, err := f.FS.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &faultyFile{File: file, fs: f, fault: f.faultFor(name)}, nil
}

func (f *FaultyFS) Remove(name string) error                         { return f.FS.Remove(name) }
func (f *FaultyFS) Rename(oldpath, newpath string) error             { return f.FS.Rename(oldpath, newpath) }
func (f *FaultyFS) Stat(name string) (os.FileInfo, error)            { return f.FS.Stat(name) }
func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error     { return f.FS.MkdirAll(path, perm) }
func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error)       { return f.FS.ReadDir(name) }
func (f *FaultyFS) Truncate(name string, size int64) error           { return f.FS.Truncate(name, size) }

type faultyFile struct {
	File
	fs      *FaultyFS
	fault   Fault
	written int64
}

func (ff *faultyFile) Write(p []byte) (n int, err error) {
	if ff.fault.FailAfterBytes >= 0 && ff.written+int64(len(p)) > ff.fault.FailAfterBytes {
		return 0, ff.injectedErr()
	}

	ff.fs.mu.Lock()
	exceeded := ff.fs.globalLimit >= 0 && ff.fs.written+int64(len(p)) > ff.fs.globalLimit
	if !exceeded {
		ff.fs.written += int64(len(p))
	}
	ff.fs.mu.Unlock()
	if exceeded {
		return 0, ff.injectedErr()
	}

	n, err = ff.File.Write(p)
	ff.written += int64(n)
	return n, err
}

func (ff *faultyFile) Sync() error {
	if ff.fault.FailOnSync {
		return ff.injectedErr()
	}
	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if ff.fault.FailOnClose {
		_ = ff.File.Close()
		return ff.injectedErr()
	}
	return ff.File.Close()
}

func (ff *faultyFile) injectedErr() error {
	if ff.fault.Err != nil {
		return ff.fault.Err
	}
	return fmt.Errorf("fs: injected fault")
}
