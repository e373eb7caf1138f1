package migrate

import (
	"bufio"
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"
)

var migrationFileName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks the migrations in dir on disk.
func ValidateDir(dir string) error {
	return Validate(Disk(dir))
}

// Validate checks that every .sql file in src is named
// YYYYMMDDHHMMSS_name.sql, that versions are unique and that each file has
// goose Up and Down annotations.
func Validate(src Source) error {
	if src.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	fsys, dir := src.FS, src.Dir
	if fsys == nil {
		fsys, dir = os.DirFS(src.Dir), "."
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", src.Dir, err)
	}

	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationFileName.FindStringSubmatch(name)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := versions[match[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", match[1], prev, name)
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
		if err := checkAnnotations(body); err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
	}

	if len(versions) == 0 {
		return fmt.Errorf("no migrations found in %q", src.Dir)
	}
	return nil
}

func checkAnnotations(body []byte) error {
	var up, down bool
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "-- +goose Up":
			up = true
		case "-- +goose Down":
			if !up {
				return fmt.Errorf("down section precedes up section")
			}
			down = true
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !up {
		return fmt.Errorf(`missing "-- +goose Up"`)
	}
	if !down {
		return fmt.Errorf(`missing "-- +goose Down"`)
	}
	return nil
}
