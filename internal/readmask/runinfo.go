package readmask

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
)

type runInfoRead struct {
	Number        int    `xml:"Number,attr"`
	NumCycles     int    `xml:"NumCycles,attr"`
	IsIndexedRead string `xml:"IsIndexedRead,attr"`
}

type runInfoDoc struct {
	Reads []runInfoRead `xml:"Run>Reads>Read"`
}

// ParseRunInfo reads the read layout from an instrument RunInfo.xml
// document. The result is ordered by read number.
func ParseRunInfo(r io.Reader) ([]ReadDescriptor, error) {
	var doc runInfoDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode RunInfo.xml: %w", err)
	}

	reads := make([]ReadDescriptor, 0, len(doc.Reads))
	for _, rd := range doc.Reads {
		var isIndex bool
		switch rd.IsIndexedRead {
		case "Y":
			isIndex = true
		case "N":
			isIndex = false
		default:
			return nil, fmt.Errorf("read %d: invalid IsIndexedRead value %q", rd.Number, rd.IsIndexedRead)
		}
		reads = append(reads, ReadDescriptor{Number: rd.Number, Cycles: rd.NumCycles, IsIndex: isIndex})
	}

	sort.SliceStable(reads, func(i, j int) bool { return reads[i].Number < reads[j].Number })
	return reads, nil
}
