package ffmpeg

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
)

type ZipCreator struct{}

func NewZipCreator() *ZipCreator {
	return &ZipCreator{}
}

// CreateZip writes filePaths, in order, into a deflated archive at outputPath.
// The archive is assembled under a .part name and renamed into place so a
// failed run never leaves a truncated archive behind.
func (z *ZipCreator) CreateZip(ctx context.Context, filePaths []string, outputPath string) error {
	partPath := outputPath + ".part"
	if err := writeZip(ctx, filePaths, partPath); err != nil {
		_ = os.Remove(partPath)
		return err
	}
	if err := os.Rename(partPath, outputPath); err != nil {
		_ = os.Remove(partPath)
		return fmt.Errorf("rename zip: %w", err)
	}
	return nil
}

func writeZip(ctx context.Context, filePaths []string, path string) error {
	zipFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}

	zipWriter := zip.NewWriter(zipFile)
	for _, fp := range filePaths {
		if err := ctx.Err(); err != nil {
			zipWriter.Close()
			zipFile.Close()
			return err
		}
		if err := addFileToZip(zipWriter, fp); err != nil {
			zipWriter.Close()
			zipFile.Close()
			return fmt.Errorf("add %s to zip: %w", fp, err)
		}
	}

	if err := zipWriter.Close(); err != nil {
		zipFile.Close()
		return fmt.Errorf("finalize zip: %w", err)
	}
	if err := zipFile.Close(); err != nil {
		return fmt.Errorf("close zip file: %w", err)
	}
	return nil
}

func addFileToZip(zw *zip.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}

	header.Name = filepath.Base(filename)
	header.Method = zip.Deflate

	writer, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	_, err = io.Copy(writer, file)
	return err
}
