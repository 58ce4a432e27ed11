// Package diff parses unified diffs into the file-change view the policy
// rules match against.
package diff

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// File is a single changed file in a diff.
type File struct {
	OldName      string
	NewName      string
	IsNew        bool
	IsDeleted    bool
	IsRenamed    bool
	IsBinary     bool
	AddedLines   int
	DeletedLines int
}

// Name returns the path a policy condition should be matched against: the
// new path when one exists, the old path for deletions.
func (f *File) Name() string {
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}

// ChangeSet holds the parsed diff for all files plus the raw diff text.
type ChangeSet struct {
	Files []*File
	Raw   string
}

// Stats returns aggregate statistics.
func (cs *ChangeSet) Stats() (files, added, deleted int) {
	files = len(cs.Files)
	for _, f := range cs.Files {
		added += f.AddedLines
		deleted += f.DeletedLines
	}
	return
}

// ChangedFiles returns the changed filenames in diff order.
func (cs *ChangeSet) ChangedFiles() []string {
	names := make([]string, 0, len(cs.Files))
	for _, f := range cs.Files {
		names = append(names, f.Name())
	}
	return names
}

// Parse reads a unified diff string and returns a ChangeSet.
func Parse(raw string) (*ChangeSet, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}

	cs := &ChangeSet{Raw: raw}
	for _, f := range parsed {
		cf := &File{
			OldName:   f.OldName,
			NewName:   f.NewName,
			IsNew:     f.IsNew,
			IsDeleted: f.IsDelete,
			IsRenamed: f.IsRename,
			IsBinary:  f.IsBinary,
		}

		for _, frag := range f.TextFragments {
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					cf.AddedLines++
				case gitdiff.OpDelete:
					cf.DeletedLines++
				}
			}
		}

		cs.Files = append(cs.Files, cf)
	}

	return cs, nil
}

// GitDiff runs `git diff` with the given arguments and returns the raw output.
func GitDiff(repoDir string, args ...string) (string, error) {
	cmdArgs := append([]string{"diff"}, args...)
	cmd := exec.Command("git", cmdArgs...)
	cmd.Dir = repoDir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}

	return string(out), nil
}

// GitDiffHead returns the diff of HEAD against its parent.
func GitDiffHead(repoDir string) (string, error) {
	return GitDiff(repoDir, "HEAD~1", "HEAD")
}

// GitDiffRange returns the diff for a commit range like "main...HEAD".
func GitDiffRange(repoDir string, commitRange string) (string, error) {
	return GitDiff(repoDir, commitRange)
}
