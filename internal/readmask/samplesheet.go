package readmask

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Sample is one row of a sample sheet.
type Sample struct {
	Lane    int
	ID      string
	Name    string
	Project string
	Barcode string
}

// SampleSheet is a parsed demultiplexer sample sheet. Version is 1 for the
// flat FCID layout and 2 for the sectioned [Data] layout.
type SampleSheet struct {
	Version int
	Samples []Sample
}

const v1Fields = 10

// ParseSampleSheet parses either sample sheet generation.
func ParseSampleSheet(r io.Reader) (*SampleSheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read sample sheet: %w", err)
	}

	for i, rec := range records {
		if isBlank(rec) {
			continue
		}
		first := strings.TrimSpace(rec[0])
		if first == "FCID" {
			return parseV1(records[i+1:])
		}
		if first == "[Data]" {
			return parseV2(records[i+1:])
		}
	}
	return nil, errors.New("sample sheet has neither an FCID header nor a [Data] section")
}

func parseV1(records [][]string) (*SampleSheet, error) {
	sheet := &SampleSheet{Version: 1}
	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		if len(rec) != v1Fields {
			return nil, fmt.Errorf("expected %d fields but found %d: %q", v1Fields, len(rec), strings.Join(rec, ","))
		}
		lane, err := strconv.Atoi(strings.TrimSpace(rec[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid lane %q: %w", rec[1], err)
		}
		id := strings.TrimSpace(rec[2])
		sheet.Samples = append(sheet.Samples, Sample{
			Lane:    lane,
			ID:      id,
			Name:    id,
			Project: strings.TrimSpace(rec[9]),
			Barcode: strings.TrimSpace(rec[4]),
		})
	}
	return sheet, nil
}

func parseV2(records [][]string) (*SampleSheet, error) {
	sheet := &SampleSheet{Version: 2}
	var columns map[string]int

	for _, rec := range records {
		if isBlank(rec) {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(rec[0]), "[") {
			break
		}
		if columns == nil {
			columns = make(map[string]int, len(rec))
			for i, name := range rec {
				columns[strings.TrimSpace(name)] = i
			}
			if _, ok := columns["Lane"]; !ok {
				return nil, errors.New("sample sheet [Data] header has no Lane column")
			}
			continue
		}
		if len(rec) < len(columns) {
			return nil, fmt.Errorf("expected %d fields but found %d: %q", len(columns), len(rec), strings.Join(rec, ","))
		}

		field := func(name string) string {
			if i, ok := columns[name]; ok {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		lane, err := strconv.Atoi(field("Lane"))
		if err != nil {
			return nil, fmt.Errorf("invalid lane %q: %w", field("Lane"), err)
		}

		barcode := field("index")
		if _, dual := columns["index2"]; dual {
			barcode = barcode + "-" + field("index2")
		}
		name := field("Sample_Name")
		if name == "" {
			name = field("Sample_ID")
		}
		sheet.Samples = append(sheet.Samples, Sample{
			Lane:    lane,
			ID:      field("Sample_ID"),
			Name:    name,
			Project: field("Sample_Project"),
			Barcode: barcode,
		})
	}

	if columns == nil {
		return nil, errors.New("sample sheet [Data] section has no header")
	}
	return sheet, nil
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Lane returns the samples of one lane in sheet order.
func (s *SampleSheet) Lane(lane int) []Sample {
	var out []Sample
	for _, sample := range s.Samples {
		if sample.Lane == lane {
			out = append(out, sample)
		}
	}
	return out
}

// LaneBarcodes returns the barcodes of one lane in sheet order.
func (s *SampleSheet) LaneBarcodes(lane int) []string {
	samples := s.Lane(lane)
	out := make([]string, 0, len(samples))
	for _, sample := range samples {
		out = append(out, sample.Barcode)
	}
	return out
}

// Lanes returns the distinct lanes of the sheet in ascending order.
func (s *SampleSheet) Lanes() []int {
	seen := make(map[int]struct{})
	var lanes []int
	for _, sample := range s.Samples {
		if _, ok := seen[sample.Lane]; ok {
			continue
		}
		seen[sample.Lane] = struct{}{}
		lanes = append(lanes, sample.Lane)
	}
	sort.Ints(lanes)
	return lanes
}
