package testutils

import (
	"errors"

	"github.com/spf13/afero"
)

// ErrWriteFailed is returned by every write to a file FailingFs refuses.
var ErrWriteFailed = errors.New("no space left on device")

// FailingFs wraps an afero.Fs; files created at a path matched by Fail accept no writes.
type FailingFs struct {
	afero.Fs
	Fail func(name string) bool
}

// Create implements afero.Fs.
func (f *FailingFs) Create(name string) (afero.File, error) {
	file, err := f.Fs.Create(name)
	if err != nil || f.Fail == nil || !f.Fail(name) {
		return file, err
	}
	return &failingFile{File: file}, nil
}

type failingFile struct {
	afero.File
}

func (f *failingFile) Write(p []byte) (int, error) {
	return 0, ErrWriteFailed
}
