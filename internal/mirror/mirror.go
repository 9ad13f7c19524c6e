// Package mirror copies fetched wallpaper content into the directories the
// wallpaper engine actually reads from. Writes are staged and renamed so a
// crash mid-copy never leaves a half-written item visible.
package mirror

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/wallpick/wallpick/pkg/logger"
)

// ErrEmptySource is returned when the fetched content directory is missing
// or holds no files.
var ErrEmptySource = errors.New("source directory missing or empty")

// Set fans one logical item write out to every configured target root.
type Set struct {
	fs      afero.Fs
	targets []string
	log     logger.Logger
}

func NewSet(fs afero.Fs, targets []string, log logger.Logger) *Set {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Set{fs: fs, targets: targets, log: log}
}

// Targets reports the configured mirror roots.
func (s *Set) Targets() []string { return s.targets }

// Materialize places the item's content tree at <target>/<itemID> for every
// target. Targets already holding identical content are left untouched, so
// re-materializing the same item is idempotent. It returns the final
// directories only when every target landed; a failed target cleans its
// staging dir and fails the whole call.
func (s *Set) Materialize(itemID uint64, srcDir string) ([]string, error) {
	want, err := s.manifest(srcDir)
	if err != nil {
		return nil, err
	}
	if len(want) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, srcDir)
	}

	id := strconv.FormatUint(itemID, 10)
	dirs := make([]string, 0, len(s.targets))
	for _, target := range s.targets {
		final := filepath.Join(target, id)

		have, err := s.manifest(final)
		if err == nil && manifestsEqual(want, have) {
			s.log.Info("mirror: %s already current, skipping", final)
			dirs = append(dirs, final)
			continue
		}

		staging := filepath.Join(target, fmt.Sprintf(".staging-%s-%08x", id, rand.Uint32()))
		if err := s.copyTree(srcDir, staging); err != nil {
			_ = s.fs.RemoveAll(staging)
			return nil, fmt.Errorf("stage %s: %w", final, err)
		}
		if err := s.fs.RemoveAll(final); err != nil {
			_ = s.fs.RemoveAll(staging)
			return nil, fmt.Errorf("clear %s: %w", final, err)
		}
		if err := s.fs.Rename(staging, final); err != nil {
			_ = s.fs.RemoveAll(staging)
			return nil, fmt.Errorf("publish %s: %w", final, err)
		}
		dirs = append(dirs, final)
	}
	return dirs, nil
}

// manifest maps each regular file's slash-relative path to "size:sha256".
func (s *Set) manifest(root string) (map[string]string, error) {
	info, err := s.fs.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptySource, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrEmptySource, root)
	}

	m := make(map[string]string)
	err = afero.Walk(s.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum, err := s.hashFile(path)
		if err != nil {
			return err
		}
		m[filepath.ToSlash(rel)] = fmt.Sprintf("%d:%s", info.Size(), sum)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Set) hashFile(path string) (string, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *Set) copyTree(src, dst string) error {
	return afero.Walk(s.fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		out := filepath.Join(dst, rel)
		if info.IsDir() {
			return s.fs.MkdirAll(out, 0o755)
		}
		return s.copyFile(path, out, info.Mode())
	})
}

func (s *Set) copyFile(src, dst string, mode os.FileMode) error {
	in, err := s.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := s.fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func manifestsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// StagingResidue lists leftover staging dirs under the targets, from runs
// that died between copy and rename. Callers may remove them at startup.
func (s *Set) StagingResidue() []string {
	var residue []string
	for _, target := range s.targets {
		entries, err := afero.ReadDir(s.fs, target)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && strings.HasPrefix(e.Name(), ".staging-") {
				residue = append(residue, filepath.Join(target, e.Name()))
			}
		}
	}
	sort.Strings(residue)
	return residue
}

// Sweep removes leftover staging dirs.
func (s *Set) Sweep() {
	for _, dir := range s.StagingResidue() {
		if err := s.fs.RemoveAll(dir); err != nil {
			s.log.Warning("mirror: sweep %s: %s", dir, err)
		} else {
			s.log.Info("mirror: swept stale staging dir %s", dir)
		}
	}
}
