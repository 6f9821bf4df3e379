package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/errors"
)

type fsTools struct {
	access *config.FilesystemAccess
}

func (f *fsTools) checkHidden(path string) error {
	if isPathRestricted(path, f.access.Hidden) {
		return errors.New("path '%s' is hidden and cannot be accessed", path)
	}
	return nil
}

func (f *fsTools) checkWritable(path string) error {
	if err := f.checkHidden(path); err != nil {
		return err
	}
	if isPathRestricted(path, f.access.ReadOnly) {
		return errors.New("path '%s' is read-only and cannot be modified", path)
	}
	return nil
}

type readFileArgs struct {
	Path string `json:"path" desc:"Path of the file to read"`
}

func (f *fsTools) readFile(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := StringArg(args, "path")
	if err != nil {
		return "", err
	}
	if err := f.checkHidden(path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	return string(data), nil
}

type writeFileArgs struct {
	Path    string `json:"path" desc:"Path of the file to write"`
	Content string `json:"content" desc:"Content to write to the file"`
}

func (f *fsTools) writeFile(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := StringArg(args, "path")
	if err != nil {
		return "", err
	}
	content, err := StringArg(args, "content")
	if err != nil {
		return "", err
	}
	if err := f.checkWritable(path); err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, "failed to create directory '%s'", dir)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write file '%s'", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to '%s'.", len(content), path), nil
}

type listFilesArgs struct {
	Path string `json:"path,omitempty" desc:"Directory to list, defaults to the current directory"`
}

func (f *fsTools) listFiles(ctx context.Context, args map[string]interface{}) (string, error) {
	path := "."
	if p, ok := args["path"].(string); ok && p != "" {
		path = p
	}
	if err := f.checkHidden(path); err != nil {
		return "", err
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to list directory '%s'", path)
	}
	var names []string
	for _, e := range entries {
		full := filepath.Join(path, e.Name())
		if isPathRestricted(full, f.access.Hidden) {
			continue
		}
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return fmt.Sprintf("Directory '%s' is empty.", path), nil
	}
	return strings.Join(names, "\n"), nil
}

type editFileArgs struct {
	Path    string `json:"path" desc:"Path of the file to edit"`
	OldText string `json:"old_text" desc:"Exact text to replace; must occur exactly once"`
	NewText string `json:"new_text" desc:"Replacement text"`
}

// editFile performs an exact single-occurrence replacement. Zero or multiple
// occurrences are errors so the model cannot clobber code it did not mean to.
func (f *fsTools) editFile(ctx context.Context, args map[string]interface{}) (string, error) {
	path, err := StringArg(args, "path")
	if err != nil {
		return "", err
	}
	oldText, err := StringArg(args, "old_text")
	if err != nil {
		return "", err
	}
	newText, err := StringArg(args, "new_text")
	if err != nil {
		return "", err
	}
	if err := f.checkWritable(path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}
	content := string(data)
	switch n := strings.Count(content, oldText); {
	case n == 0:
		return "", errors.New("old_text not found in '%s'", path)
	case n > 1:
		return "", errors.New("old_text occurs %d times in '%s', expected exactly one occurrence", n, path)
	}
	content = strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write file '%s'", path)
	}
	return fmt.Sprintf("Successfully edited '%s'.", path), nil
}
