package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// LoadCSV reads a metadata file describing the dataset pool. Expected
// header: path,person,mask,gender,age — mask and gender as attribute
// values, age in years (bucketed here).
func LoadCSV(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata: %w", err)
	}
	defer f.Close()

	return ParseCSV(f)
}

// ParseCSV reads metadata records from r. See LoadCSV for the format.
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range []string{"path", "person", "mask", "gender", "age"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("metadata header missing column %q", name)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read metadata row: %w", err)
		}

		mask, err := strconv.Atoi(row[col["mask"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad mask value %q", line, row[col["mask"]])
		}
		gender, err := strconv.Atoi(row[col["gender"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad gender value %q", line, row[col["gender"]])
		}
		years, err := strconv.Atoi(row[col["age"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad age value %q", line, row[col["age"]])
		}

		label, err := EncodeLabel(mask, gender, AgeGroup(years))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, Record{
			Path:   row[col["path"]],
			Person: row[col["person"]],
			Label:  label,
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("metadata contains no samples")
	}
	return records, nil
}
