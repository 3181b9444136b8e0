// Package fixture has helpers shared by tests. Every helper calls Fatal on
// the given testing.T when an operation fails.
package fixture

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"golang.org/x/exp/slices"
)

// Tmpdir creates a temporary dir, with symlinks evaluated, removed when
// the test finishes.
func Tmpdir(t *testing.T) string {
	t.Helper()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

// MkdirAll will do the same thing as os.Mkdirall but calling Fatal on
// the given testing.T if something goes wrong.
func MkdirAll(t *testing.T, dir string) {
	t.Helper()

	err := os.MkdirAll(dir, os.ModePerm)
	if err != nil {
		t.Fatal(err)
	}
}

// CreateFile will create the file and its dirs if necessary.
//
// The file content will be a randomly generated string (not a lot random,
// just for test purposes), returned after being written.
func CreateFile(t *testing.T, f string) string {
	t.Helper()

	MkdirAll(t, filepath.Dir(f))

	contents := fmt.Sprintf("randomContents=%d", rand.Int())

	err := os.WriteFile(f, []byte(contents), 0644)
	if err != nil {
		t.Fatalf("error[%s] writing file[%s]", err, f)
	}

	return contents
}

func ReadFile(t *testing.T, f string) string {
	t.Helper()

	contents, err := os.ReadFile(f)
	if err != nil {
		t.Fatalf("error[%s] reading file[%s]", err, f)
	}
	return string(contents)
}

// FdPath returns what descriptor n of the test process refers to.
func FdPath(t *testing.T, n int) string {
	t.Helper()

	path, err := os.Readlink("/proc/self/fd/" + strconv.Itoa(n))
	if err != nil {
		t.Fatalf("error[%s] inspecting fd[%d]", err, n)
	}
	return path
}

// OpenFds lists the open descriptors of the test process, sorted.
func OpenFds(t *testing.T) []int {
	t.Helper()

	dir, err := os.Open("/proc/self/fd")
	if err != nil {
		t.Fatal(err)
	}
	defer dir.Close()

	names, err := dir.Readdirnames(-1)
	if err != nil {
		t.Fatal(err)
	}

	self := int(dir.Fd())
	fds := make([]int, 0, len(names))
	for _, name := range names {
		n, err := strconv.Atoi(name)
		if err != nil || n == self {
			continue
		}
		fds = append(fds, n)
	}
	slices.Sort(fds)
	return fds
}
