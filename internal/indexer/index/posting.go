package index

import (
	"fmt"
	"strconv"
	"strings"
)

// Position locates one occurrence of a lemma in a document. It is stored as
// the record "line:word:length".
type Position struct {
	Line   int
	Word   int
	Length int
}

func (p Position) String() string {
	return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Word) + ":" + strconv.Itoa(p.Length)
}

// ParsePosition decodes a stored position record.
func ParsePosition(record string) (Position, error) {
	parts := strings.Split(record, ":")
	if len(parts) != 3 {
		return Position{}, fmt.Errorf("position record %q: want line:word:length", record)
	}
	var vals [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return Position{}, fmt.Errorf("position record %q: %w", record, err)
		}
		vals[i] = n
	}
	return Position{Line: vals[0], Word: vals[1], Length: vals[2]}, nil
}
