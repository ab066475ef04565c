package classify

import "sort"

// ClassifyByBarcode partitions files by their barcode tag.
func ClassifyByBarcode(files []TaggedFile) map[string][]TaggedFile {
	groups := make(map[string][]TaggedFile)
	for _, f := range files {
		groups[f.Barcode] = append(groups[f.Barcode], f)
	}
	return groups
}

// ClassifyByRead partitions files by their read number. A read number other
// than 1, 2 or none is a classification error naming the file.
func ClassifyByRead(files []TaggedFile) (map[ReadNumber][]TaggedFile, error) {
	groups := make(map[ReadNumber][]TaggedFile)
	for _, f := range files {
		if !f.Read.Valid() {
			return nil, invalidRead(f)
		}
		groups[f.Read] = append(groups[f.Read], f)
	}
	return groups, nil
}

// OfType returns the files of the given type, in input order.
func OfType(files []TaggedFile, t FileType) []TaggedFile {
	var out []TaggedFile
	for _, f := range files {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// SortedKeys returns the keys of a barcode grouping in ascending order.
func SortedKeys(groups map[string][]TaggedFile) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IDs returns the IDs of files, in order.
func IDs(files []TaggedFile) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}
