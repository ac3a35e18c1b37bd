// Package discover finds the registry and footprint files in a data
// directory, asking the user to pick one when several match.
package discover

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// ErrMissingInput means a required input could not be resolved.
var ErrMissingInput = errors.New("missing data files")

var (
	// RegistryPattern matches registry exports, e.g. ehr_2024-05-01.csv.
	RegistryPattern = regexp.MustCompile(`^ehr.*\.csv`)
	// ArchivePattern matches footprint archives, e.g. ETAK_EESTI_SHP_HOONED.zip.
	ArchivePattern = regexp.MustCompile(`^ETAK.*\.zip`)
)

// Sources are the two resolved input paths.
type Sources struct {
	Registry string
	Archive  string
}

// Prompt is the terminal used to ask for a choice.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Resolver picks input files from a directory.
type Resolver struct {
	dir    string
	in     *bufio.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewResolver returns a resolver for dir. A nil logger discards.
func NewResolver(dir string, p Prompt, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	in := p.In
	if in == nil {
		in = strings.NewReader("")
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}
	return &Resolver{dir: dir, in: bufio.NewReader(in), out: out, logger: logger}
}

// Resolve fills in whichever of preset's paths are empty. Both inputs are
// resolved before an error is returned so the user is asked about each.
func (r *Resolver) Resolve(preset Sources) (Sources, error) {
	src := preset
	var names []string
	if src.Registry == "" || src.Archive == "" {
		entries, err := os.ReadDir(r.dir)
		if err != nil {
			r.logger.Error("missing data files", "dir", r.dir, "err", err)
			return src, fmt.Errorf("%w: %v", ErrMissingInput, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		slices.Sort(names)
	}

	if src.Registry == "" {
		src.Registry = r.Choose(match(names, RegistryPattern))
	}
	if src.Archive == "" {
		src.Archive = r.Choose(match(names, ArchivePattern))
	}

	var missing []string
	if src.Registry == "" {
		missing = append(missing, "registry")
	}
	if src.Archive == "" {
		missing = append(missing, "archive")
	}
	if len(missing) > 0 {
		return src, fmt.Errorf("%w: no %s in %s", ErrMissingInput, strings.Join(missing, " or "), r.dir)
	}
	return src, nil
}

// Choose returns the single option, or lists several and reads a 1-based
// choice. It returns "" when there is nothing to choose or the answer is
// not a listed number.
func (r *Resolver) Choose(options []string) string {
	if len(options) == 0 {
		r.logger.Error("missing data files", "dir", r.dir)
		return ""
	}
	if len(options) == 1 {
		return filepath.Join(r.dir, options[0])
	}

	for i, name := range options {
		fmt.Fprintf(r.out, "%d. %s\n", i+1, name)
	}
	fmt.Fprint(r.out, "Which one: ")

	line, err := r.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	answer := strings.TrimSpace(line)
	if answer == "" || strings.Trim(answer, "0123456789") != "" {
		return ""
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(options) {
		return ""
	}
	return filepath.Join(r.dir, options[n-1])
}

func match(names []string, re *regexp.Regexp) []string {
	var out []string
	for _, n := range names {
		if re.MatchString(n) {
			out = append(out, n)
		}
	}
	return out
}
