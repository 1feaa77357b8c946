package sources

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/arthur-debert/refold/pkg/errors"
)

func (a Archive) Fetch() ([]byte, error) {
	switch {
	case strings.HasSuffix(a.Archive, ".zip"):
		return extractFromZip(a.Archive, a.Path)
	case strings.HasSuffix(a.Archive, ".tar.xz"):
		return extractFromTarXz(a.Archive, a.Path)
	case strings.HasSuffix(a.Archive, ".tar"):
		return extractFromTar(a.Archive, a.Path)
	default:
		return nil, errors.Newf(errors.ErrFetch,
			"unsupported archive type: %s", a.Archive)
	}
}

func extractFromZip(archivePath, subPath string) ([]byte, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not open archive %s", archivePath)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if stripFirstLevel(entry.Name) != subPath {
			continue
		}
		f, err := entry.Open()
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFetch,
				"could not open %s in %s", subPath, archivePath)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFetch,
				"could not read %s from %s", subPath, archivePath)
		}
		return data, nil
	}
	return nil, errors.Newf(errors.ErrFetch,
		"file %s not found in %s", subPath, archivePath)
}

func extractFromTar(archivePath, subPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not open archive %s", archivePath)
	}
	defer f.Close()
	return extractFromTarReader(f, archivePath, subPath)
}

func extractFromTarXz(archivePath, subPath string) ([]byte, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not open archive %s", archivePath)
	}
	defer f.Close()
	decoder, err := xz.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch, "could not decompress %s", archivePath)
	}
	return extractFromTarReader(decoder, archivePath, subPath)
}

func extractFromTarReader(r io.Reader, archivePath, subPath string) ([]byte, error) {
	archive := tar.NewReader(r)
	for {
		header, err := archive.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFetch, "could not read archive %s", archivePath)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		if stripFirstLevel(header.Name) != subPath {
			continue
		}
		data, err := io.ReadAll(archive)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFetch,
				"could not read %s from %s", subPath, archivePath)
		}
		return data, nil
	}
	return nil, errors.Newf(errors.ErrFetch,
		"file %s not found in %s", subPath, archivePath)
}

// stripFirstLevel drops the leading path component of an archive entry.
// Release archives conventionally wrap their content in one top-level
// directory; inner paths in a manifest are written without it.
func stripFirstLevel(name string) string {
	components := strings.Split(name, "/")
	if len(components) > 1 {
		return strings.Join(components[1:], "/")
	}
	return name
}

func (b Borg) Fetch() ([]byte, error) {
	if err := exec.Command("borg", "-V").Run(); err != nil {
		return nil, errors.Wrap(err, errors.ErrFetch, "borg does not seem to be installed")
	}
	backup := b.Archive + "::" + b.ID
	var stdout, stderr bytes.Buffer
	cmd := exec.Command("borg", "extract", backup, b.Path, "--stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFetch,
			"borg extract of %s from %s failed: %s", b.Path, backup, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
