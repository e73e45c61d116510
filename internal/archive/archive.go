package archive

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"

	"ppabuild/internal/services"
)

// Format identifies the compression wrapped around a tar stream.
type Format string

const (
	FormatTar   Format = "tar"
	FormatXZ    Format = "xz"
	FormatGzip  Format = "gzip"
	FormatZstd  Format = "zstd"
	FormatLZ4   Format = "lz4"
	FormatBzip2 Format = "bzip2"
)

var magics = []struct {
	format Format
	magic  []byte
}{
	{FormatXZ, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
	{FormatGzip, []byte{0x1F, 0x8B}},
	{FormatZstd, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{FormatLZ4, []byte{0x04, 0x22, 0x4D, 0x18}},
	{FormatBzip2, []byte{'B', 'Z', 'h'}},
}

const ustarOffset = 257

// Options tunes extraction.
type Options struct {
	// StripComponents drops this many leading path elements from every entry,
	// like tar --strip-components. Entries left with no name are skipped.
	StripComponents int
}

// Detect sniffs the compression format from the leading bytes of an archive.
func Detect(header []byte) (Format, bool) {
	for _, m := range magics {
		if bytes.HasPrefix(header, m.magic) {
			return m.format, true
		}
	}
	if len(header) >= ustarOffset+5 && string(header[ustarOffset:ustarOffset+5]) == "ustar" {
		return FormatTar, true
	}
	return "", false
}

// Extract unpacks the tar archive at archivePath into destDir, creating
// destDir if needed. Every entry must resolve inside destDir.
func Extract(archivePath, destDir string, opts Options) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "", "extract", "open "+archivePath, err)
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 64*1024)
	header, err := br.Peek(ustarOffset + 5)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return services.Wrap(services.ErrArchive, "", "extract", "read "+archivePath, err)
	}
	format, ok := Detect(header)
	if !ok {
		return services.Wrap(services.ErrArchive, "", "extract", "unsupported format: "+filepath.Base(archivePath), nil)
	}

	stream, closeStream, err := decompress(format, br)
	if err != nil {
		return services.Wrap(services.ErrArchive, "", "extract", fmt.Sprintf("open %s stream", format), err)
	}
	defer closeStream()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, "", "extract", "create "+destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "", "extract", "open "+destDir, err)
	}
	defer root.Close()

	return extractTar(tar.NewReader(stream), root, opts)
}

func decompress(format Format, r io.Reader) (io.Reader, func(), error) {
	noop := func() {}
	switch format {
	case FormatTar:
		return r, noop, nil
	case FormatXZ:
		zr, err := xz.NewReader(r)
		return zr, noop, err
	case FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, noop, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case FormatZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, noop, err
		}
		return zr, zr.Close, nil
	case FormatLZ4:
		return lz4.NewReader(r), noop, nil
	case FormatBzip2:
		return bzip2.NewReader(r), noop, nil
	}
	return nil, noop, fmt.Errorf("unsupported format %q", format)
}

func extractTar(tr *tar.Reader, root *os.Root, opts Options) error {
	var links []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			// Later entries can turn a link's parent into a symlink, so every
			// link is resolved again once the tree is complete.
			return checkLinks(root, links)
		}
		if err != nil {
			return services.Wrap(services.ErrArchive, "", "extract", "read entry", err)
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			continue
		}

		name, ok, err := entryName(hdr.Name, opts.StripComponents)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := writeEntry(tr, root, hdr, name, opts); err != nil {
			return err
		}
		if hdr.Typeflag == tar.TypeSymlink {
			if err := checkLinks(root, []string{name}); err != nil {
				return err
			}
			links = append(links, name)
		}
	}
}

// entryName cleans an archive member name and applies StripComponents. The
// boolean is false when nothing is left after stripping.
func entryName(raw string, strip int) (string, bool, error) {
	if strings.HasPrefix(raw, "/") {
		return "", false, traversal(raw)
	}
	cleaned := path.Clean(raw)
	if cleaned == "." {
		return "", false, nil
	}
	parts := strings.Split(cleaned, "/")
	if strip > 0 {
		if len(parts) <= strip {
			return "", false, nil
		}
		parts = parts[strip:]
	}
	name := filepath.FromSlash(strings.Join(parts, "/"))
	if !filepath.IsLocal(name) {
		return "", false, traversal(raw)
	}
	return name, true, nil
}

func writeEntry(tr *tar.Reader, root *os.Root, hdr *tar.Header, name string, opts Options) error {
	perm := hdr.FileInfo().Mode().Perm()
	if dir := filepath.Dir(name); dir != "." {
		if err := root.MkdirAll(dir, 0o755); err != nil {
			return entryError(hdr.Name, err)
		}
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := root.MkdirAll(name, 0o755); err != nil {
			return entryError(hdr.Name, err)
		}
		// Keep directories traversable while the rest of the archive lands.
		if err := root.Chmod(name, perm|0o700); err != nil {
			return entryError(hdr.Name, err)
		}
	case tar.TypeReg:
		out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
		if err != nil {
			return entryError(hdr.Name, err)
		}
		if _, err := io.Copy(out, tr); err != nil {
			_ = out.Close()
			return services.Wrap(services.ErrArchive, "", "extract", "read "+hdr.Name, err)
		}
		if err := out.Chmod(perm); err != nil {
			_ = out.Close()
			return entryError(hdr.Name, err)
		}
		if err := out.Close(); err != nil {
			return entryError(hdr.Name, err)
		}
	case tar.TypeSymlink:
		target := hdr.Linkname
		if filepath.IsAbs(target) || !filepath.IsLocal(filepath.Join(filepath.Dir(name), filepath.FromSlash(target))) {
			return traversal(hdr.Name + " -> " + target)
		}
		if err := root.Symlink(target, name); err != nil {
			return entryError(hdr.Name, err)
		}
	case tar.TypeLink:
		target, ok, err := entryName(hdr.Linkname, opts.StripComponents)
		if err != nil {
			return err
		}
		if !ok {
			return services.Wrap(services.ErrArchive, "", "extract", fmt.Sprintf("hard link %s targets stripped entry %s", hdr.Name, hdr.Linkname), nil)
		}
		if err := root.Link(target, name); err != nil {
			return entryError(hdr.Name, err)
		}
	case tar.TypeChar, tar.TypeBlock, tar.TypeFifo:
		return services.Wrap(services.ErrArchive, "", "extract", "refusing special file "+hdr.Name, nil)
	default:
		return services.Wrap(services.ErrArchive, "", "extract", fmt.Sprintf("unsupported entry type %q for %s", hdr.Typeflag, hdr.Name), nil)
	}
	return nil
}

func traversal(name string) error {
	return services.Wrap(services.ErrArchive, "", "extract", "path traversal: "+name, nil)
}

// checkLinks resolves each symlink through root. The lexical check in
// writeEntry only sees the name as written; a parent that is itself a symlink
// moves the link elsewhere, so resolution is what decides. Dangling links
// inside the destination are allowed.
func checkLinks(root *os.Root, names []string) error {
	for _, name := range names {
		if _, err := root.Stat(name); err != nil && escapes(err) {
			_ = root.Remove(name)
			return traversal(name)
		}
	}
	return nil
}

func escapes(err error) bool {
	return strings.Contains(err.Error(), "path escapes")
}

// entryError reports a failure writing an entry. os.Root refuses to follow
// paths out of the destination, which surfaces as a traversal.
func entryError(name string, err error) error {
	if escapes(err) {
		return services.Wrap(services.ErrArchive, "", "extract", "path traversal: "+name, err)
	}
	return services.Wrap(services.ErrFilesystem, "", "extract", "write "+name, err)
}
