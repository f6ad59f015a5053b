//go:build unix

// Package asyncfile wraps file descriptors so reads and writes park on the
// runtime poller and can be interrupted by a context.
package asyncfile

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// File is a pollable duplicate of another file's descriptor.
// Read and Write may run concurrently; each must have a single caller.
type File struct {
	f         *os.File
	closeOnce sync.Once
	closeErr  error
}

// Dup duplicates src's descriptor, marks it non-blocking and hands it to
// the runtime poller. The non-blocking flag is shared with src; Close
// clears it again. src stays open and owned by the caller.
func Dup(src *os.File) (*File, error) {
	raw, err := src.SyscallConn()
	if err != nil {
		return nil, err
	}
	fd := -1
	var dupErr error
	if err := raw.Control(func(s uintptr) {
		fd, dupErr = unix.FcntlInt(s, unix.F_DUPFD_CLOEXEC, 0)
	}); err != nil {
		return nil, err
	}
	if dupErr != nil {
		return nil, dupErr
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	return &File{f: os.NewFile(uintptr(fd), src.Name())}, nil
}

// Name returns the name of the duplicated file.
func (a *File) Name() string { return a.f.Name() }

// Read reads available bytes into p, waiting for readiness until ctx ends.
func (a *File) Read(ctx context.Context, p []byte) (int, error) {
	stop := context.AfterFunc(ctx, func() {
		_ = a.f.SetReadDeadline(time.Now())
	})
	n, err := a.f.Read(p)
	if !stop() {
		_ = a.f.SetReadDeadline(time.Time{})
		if errors.Is(err, os.ErrDeadlineExceeded) {
			err = ctx.Err()
		}
	}
	return n, err
}

// Write writes p, waiting for buffer space until ctx ends.
func (a *File) Write(ctx context.Context, p []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = a.f.SetWriteDeadline(time.Now())
	})
	n, err := a.f.Write(p)
	if !stop() {
		_ = a.f.SetWriteDeadline(time.Time{})
		if errors.Is(err, os.ErrDeadlineExceeded) {
			err = ctx.Err()
		}
	}
	return n, err
}

// Close restores blocking mode on the shared description and closes the duplicate.
func (a *File) Close() error {
	if a == nil {
		return nil
	}
	a.closeOnce.Do(func() {
		if raw, err := a.f.SyscallConn(); err == nil {
			_ = raw.Control(func(s uintptr) {
				_ = unix.SetNonblock(int(s), false)
			})
		}
		a.closeErr = a.f.Close()
	})
	return a.closeErr
}
