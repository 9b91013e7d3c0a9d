// Package projection implements idShortPath navigation over
// domain.SubmodelElement trees and the IDTA content/level/extent
// projection modifiers, which Apply runs on the generic JSON value form
// of an element (obtained through encoding/json) so the same recursive
// algorithms apply at every nesting level.
package projection

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is one step of a parsed idShortPath: either a name step (selects
// a child by idShort) or an index step (selects a position in a list).
type Segment struct {
	Name  string
	Index int
	IsIdx bool
}

// ParsePath parses the grammar `segment ('.' segment | '[' index ']')*`
// into an ordered list of Segments. An empty path parses to a nil slice.
func ParsePath(path string) ([]Segment, error) {
	var segs []Segment
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, Segment{Name: cur.String()})
			cur.Reset()
		}
	}

	i := 0
	for i < len(path) {
		c := path[i]
		switch c {
		case '.':
			flush()
		case '[':
			flush()
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j >= len(path) {
				return nil, fmt.Errorf("projection: unterminated index in path %q", path)
			}
			idxStr := path[i+1 : j]
			idx, err := strconv.Atoi(idxStr)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("projection: invalid index %q in path %q", idxStr, path)
			}
			segs = append(segs, Segment{Index: idx, IsIdx: true})
			i = j
		default:
			cur.WriteByte(c)
		}
		i++
	}
	flush()
	return segs, nil
}
