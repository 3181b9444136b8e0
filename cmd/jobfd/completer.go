package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/madlambda/jobfd"
)

var runes = readline.Runes{}

// Completer completes the word under the cursor: paths when it starts
// with "/" or "./" or follows a redirection operator, builtin and program
// names when it is the first word of a command.
type Completer struct {
	path string
}

func NewCompleter(path string) *Completer {
	return &Completer{path: path}
}

func (c *Completer) Do(line []rune, pos int) (newLine [][]rune, offset int) {
	line = runes.TrimSpaceLeft(line[:pos])

	start := strings.LastIndexAny(string(line), " \t;") + 1
	word := string(line)[start:]

	if _, ok := redirectArgs(word); ok {
		i := strings.LastIndexAny(word, "<>&")
		word = word[i+1:]
		if word == "" {
			return nil, 0
		}
	}

	if strings.HasPrefix(word, "/") || strings.HasPrefix(word, "./") {
		return completeFile(word)
	}

	if strings.TrimSpace(string(line)[:start]) != "" &&
		!strings.HasSuffix(strings.TrimSpace(string(line)[:start]), ";") {
		return nil, 0
	}

	return c.completeCommand(word)
}

func (c *Completer) completeCommand(word string) ([][]rune, int) {
	if word == "" {
		return nil, 0
	}

	var out [][]rune

	for _, name := range jobfd.Builtins() {
		if strings.HasPrefix(name, word) {
			out = append(out, suffix(name, word))
		}
	}

	for _, dir := range filepath.SplitList(c.path) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasPrefix(e.Name(), word) {
				out = append(out, suffix(e.Name(), word))
			}
		}
	}

	return out, len([]rune(word))
}

// completeFile lists the entries of the directory part of word whose
// names extend its last element. Directories are completed with a
// trailing slash, files with a space.
func completeFile(word string) ([][]rune, int) {
	dir, base := filepath.Split(word)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0
	}

	var out [][]rune
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, base) {
			continue
		}
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(base, ".") {
			continue
		}

		end := " "
		if e.IsDir() {
			end = "/"
		}
		out = append(out, []rune(name[len(base):]+end))
	}

	return out, len([]rune(base))
}

func suffix(name, prefix string) []rune {
	return []rune(name[len(prefix):] + " ")
}
