package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Columns names the registry header fields the loader reads.
type Columns struct {
	Code    string // registry code, e.g. 101036535
	Year    string // first-use date, "YYYY" or "YYYY-MM-DD"
	Name    string // building name
	Type    string // building type, used when the name is empty
	Address string // full address
}

// DefaultColumns returns the column names of the public EHR export.
func DefaultColumns() Columns {
	return Columns{
		Code:    "ehr_kood",
		Year:    "esmane_kasutus",
		Name:    "nimetus",
		Type:    "ehitise_tyyp",
		Address: "taisaadress",
	}
}

// Options configures loading.
type Options struct {
	// Delimiter separates fields. Default ';'.
	Delimiter rune

	// Encoding is a WHATWG encoding label ("utf-8", "windows-1257", ...).
	// A leading byte order mark is honoured regardless. Default "utf-8".
	Encoding string

	Columns Columns

	// Logger receives progress and duplicate-code messages. Nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns options for the public EHR export.
func DefaultOptions() Options {
	return Options{
		Delimiter: ';',
		Encoding:  "utf-8",
		Columns:   DefaultColumns(),
	}
}

// Load reads the registry file at path. The file is closed before Load
// returns.
func Load(path string, opts Options) (*Index, Stats, error) {
	logger := loggerOrDiscard(opts.Logger)
	logger.Info("reading registry", "path", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open registry: %w", err)
	}
	defer f.Close()

	idx, stats, err := Read(f, opts)
	if err != nil {
		var mc *MissingColumnError
		if errors.As(err, &mc) {
			mc.Path = path
		}
		return nil, stats, err
	}
	return idx, stats, nil
}

// Read builds an index from r.
//
// Rows that fail the code or year checks are dropped without being
// reported individually. A later row with the same code replaces the
// earlier one; both line numbers are logged.
func Read(r io.Reader, opts Options) (*Index, Stats, error) {
	opts = withDefaults(opts)
	logger := loggerOrDiscard(opts.Logger)

	decoded, err := decode(r, opts.Encoding)
	if err != nil {
		return nil, Stats{}, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = opts.Delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, Stats{}, &MissingColumnError{Column: opts.Columns.Code}
	}
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to read registry header: %w", err)
	}
	cols, err := resolveColumns(header, opts.Columns)
	if err != nil {
		return nil, Stats{}, err
	}

	entries := make(map[int64]Entry)
	firstSeen := make(map[int64]int)
	var stats Stats

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read registry: %w", err)
		}
		stats.Rows++
		line, _ := cr.FieldPos(0)

		code, ok := parseCode(cols.field(row, cols.code))
		if !ok {
			stats.DroppedCode++
			continue
		}

		year, ok := parseYear(cols.field(row, cols.year))
		if !ok {
			stats.DroppedYear++
			continue
		}

		name := cols.field(row, cols.name)
		if name == "" {
			name = cols.field(row, cols.typ)
		}

		if prev, dup := firstSeen[code]; dup {
			stats.Duplicates++
			logger.Warn("duplicate registry code, keeping the later row",
				"code", code, "first_line", prev, "line", line)
		}
		firstSeen[code] = line

		entries[code] = Entry{
			Name:    name,
			Address: cols.field(row, cols.address),
			Year:    year,
		}
		stats.Kept++
	}

	logger.Info("registry loaded", "rows", stats.Rows, "records", len(entries))
	return &Index{entries: entries}, stats, nil
}

// parseCode accepts trimmed codes that start with '1' and are all ASCII
// digits. Codes starting with other digits are not buildings.
func parseCode(raw string) (int64, bool) {
	code := strings.TrimSpace(raw)
	if code == "" || code[0] != '1' || !allDigits(code) {
		return 0, false
	}
	n, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseYear takes the first four characters of the field and requires
// them to be exactly four ASCII digits.
func parseYear(raw string) (int, bool) {
	if raw == "" {
		return 0, false
	}
	runes := []rune(raw)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	year := string(runes)
	if len(year) != 4 || !allDigits(year) {
		return 0, false
	}
	n, _ := strconv.Atoi(year)
	return n, true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// columnIndex holds header positions for the configured columns.
type columnIndex struct {
	code, year, name, typ, address int
}

func (c columnIndex) field(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func resolveColumns(header []string, want Columns) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	lookup := func(name string) (int, error) {
		i, ok := pos[name]
		if !ok {
			return 0, &MissingColumnError{Column: name}
		}
		return i, nil
	}

	var idx columnIndex
	var err error
	if idx.code, err = lookup(want.Code); err != nil {
		return idx, err
	}
	if idx.year, err = lookup(want.Year); err != nil {
		return idx, err
	}
	if idx.name, err = lookup(want.Name); err != nil {
		return idx, err
	}
	if idx.typ, err = lookup(want.Type); err != nil {
		return idx, err
	}
	if idx.address, err = lookup(want.Address); err != nil {
		return idx, err
	}
	return idx, nil
}

// decode wraps r so that it yields UTF-8, dropping a byte order mark.
func decode(r io.Reader, label string) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, &UnknownEncodingError{Name: label}
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

func withDefaults(opts Options) Options {
	def := DefaultOptions()
	if opts.Delimiter == 0 {
		opts.Delimiter = def.Delimiter
	}
	if opts.Encoding == "" {
		opts.Encoding = def.Encoding
	}
	if opts.Columns == (Columns{}) {
		opts.Columns = def.Columns
	}
	return opts
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
