package common

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

func MkdirForFile(fileName string) error {
	if err := os.MkdirAll(filepath.Dir(fileName), os.ModePerm); err != nil {
		return err
	}
	return nil
}

func OpenTempFile(fullPath string) (f *os.File, err error) {
	fileNameTmp := fullPath + "." + strconv.Itoa(rand.Int())
	return os.OpenFile(fileNameTmp, os.O_RDWR|os.O_CREATE|os.O_EXCL, os.ModePerm)
}

// WriteFileAtomically writes contents to a temp file in the same directory
// and renames it over fullPath, so concurrent readers never see a partial file.
func WriteFileAtomically(fullPath string, contents []byte) error {
	tmpFile, err := OpenTempFile(fullPath)
	if err != nil {
		return err
	}
	if _, err = tmpFile.Write(contents); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return err
	}
	if err = tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return err
	}
	return os.Rename(tmpFile.Name(), fullPath)
}

// CopyFile copies srcPath to destPath preserving the source file mode.
// It replaces the shell-outs to `cp` that wrapper scripts traditionally use.
func CopyFile(srcPath string, destPath string) error {
	srcStat, err := os.Stat(srcPath)
	if err != nil {
		return err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	if err = MkdirForFile(destPath); err != nil {
		return err
	}
	dest, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcStat.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err = io.Copy(dest, src); err != nil {
		_ = dest.Close()
		return fmt.Errorf("copy %s to %s: %w", srcPath, destPath, err)
	}
	if err = dest.Close(); err != nil {
		return err
	}
	return os.Chmod(destPath, srcStat.Mode().Perm())
}

// FileSize returns the size of a file, or 0 if it can't be stat'ed.
// Entries being written concurrently may miss component files, that's fine.
func FileSize(fileName string) int64 {
	stat, err := os.Stat(fileName)
	if err != nil {
		return 0
	}
	return stat.Size()
}
