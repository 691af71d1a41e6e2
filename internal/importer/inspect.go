package importer

// FileInfo describes a readable import file.
type FileInfo struct {
	Rows    int      `json:"rows"`
	Columns int      `json:"columns"`
	Headers []string `json:"headers"`
}

func describe(t *Table) *FileInfo {
	return &FileInfo{Rows: len(t.Rows), Columns: len(t.Headers), Headers: t.Headers}
}

// Inspect checks the extension and existence of path and reports its shape.
// It does not apply the row limit; see Pipeline.Validate.
func Inspect(path, enc string) (*FileInfo, error) {
	t, err := readChecked(path, enc)
	if err != nil {
		return nil, err
	}
	return describe(t), nil
}

// Preview returns the header row and at most n data rows of path.
func Preview(path, enc string, n int) (*Table, error) {
	t, err := readChecked(path, enc)
	if err != nil {
		return nil, err
	}
	if n >= 0 && len(t.Rows) > n {
		t.Rows = t.Rows[:n]
	}
	return t, nil
}
