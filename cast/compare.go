package cast

import (
	"fmt"
	"strings"
)

// Compare orders native values for sorting. Missing values sort first,
// values of one type compare naturally, and mixed types compare by their
// text.
func Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c, ok := compareValues(a, b); ok {
		return c
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case y:
				return -1
			}
			return 1
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// Equal reports whether two native values are equal. Decimals compare by
// value and times by instant.
func Equal(a, b any) bool {
	return equalValues(a, b)
}
