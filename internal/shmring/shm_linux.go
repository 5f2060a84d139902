//go:build linux

package shmring

import (
	"os"
	"path/filepath"
	"syscall"
)

// linuxBackend mmaps a file under /dev/shm, the POSIX shm_open equivalent
// available without cgo on Linux (original_source's k4-core/src/shm.rs
// uses shm_open+mmap directly; this is the same mechanism reached through
// the filesystem path POSIX shm_open itself resolves to).
type linuxBackend struct {
	file *os.File
	data []byte
}

func openRegion(name string, size uint64) ([]byte, backend, error) {
	path := filepath.Join("/dev/shm", name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, ErrBackendUnavailable
	}
	if err := f.Truncate(int64(size)); err != nil {
		f.Close()
		return nil, nil, ErrBackendUnavailable
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, nil, ErrBackendUnavailable
	}
	return data, &linuxBackend{file: f, data: data}, nil
}

// close unmaps and closes the backing file descriptor but does not
// unlink the /dev/shm path: the region survives for the next process to
// reattach.
func (b *linuxBackend) close() error {
	if err := syscall.Munmap(b.data); err != nil {
		return err
	}
	return b.file.Close()
}
