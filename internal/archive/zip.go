// Package archive packages directories as installable zip bundles.
package archive

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/rotisserie/eris"
)

// Zip writes every regular file under srcDir into a zip archive at dest.
// Entry names are relative to srcDir with forward slashes. dest may live
// inside srcDir; it is never added to itself.
func Zip(srcDir, dest string) (err error) {
	absDest, err := filepath.Abs(dest)
	if err != nil {
		return eris.Wrap(err, "archive: resolve destination")
	}

	out, err := os.Create(dest)
	if err != nil {
		return eris.Wrapf(err, "archive: create %s", dest)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = eris.Wrap(cerr, "archive: close file")
		}
	}()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, aerr := filepath.Abs(path); aerr == nil && abs == absDest {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		_ = zw.Close()
		return eris.Wrapf(walkErr, "archive: walk %s", srcDir)
	}

	if err := zw.Close(); err != nil {
		return eris.Wrap(err, "archive: finalize")
	}
	return nil
}

func addFile(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
