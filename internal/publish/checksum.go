package publish

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ChecksumFile is the dotfile recording the tree digest. Dotfiles are
// excluded from the digest itself, so writing it does not change it.
const ChecksumFile = ".checksum"

// TreeChecksum digests every regular file under dir, excluding dotfiles and
// dot directories. Files are ordered by their slash-separated relative path,
// so the result does not depend on directory traversal order.
func TreeChecksum(dir string) (string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	tree := sha256.New()
	for _, rel := range paths {
		sum, err := fileChecksum(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(tree, "%s  %s\n", sum, rel)
	}
	return hex.EncodeToString(tree.Sum(nil)), nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksum records digest in the tree's checksum dotfile.
func WriteChecksum(dir, digest string) error {
	return os.WriteFile(filepath.Join(dir, ChecksumFile), []byte(digest+"\n"), 0o644)
}
