package filter

import "strconv"

// propDelims are the characters accepted between positional property
// tokens, so "640x480", "640:480" and "640 480" all parse the same way.
const propDelims = "xX:_/ "

// SplitProps splits a property string into positional tokens. Empty
// tokens are kept, so a leading delimiter leaves the first position
// unset: "x480" is ["", "480"].
func SplitProps(s string) []string {
	tokens := make([]string, 0, 4)
	start := 0
	for i := 0; i < len(s); i++ {
		if isPropDelim(s[i]) {
			tokens = append(tokens, s[start:i])
			start = i + 1
		}
	}
	return append(tokens, s[start:])
}

func isPropDelim(c byte) bool {
	for i := 0; i < len(propDelims); i++ {
		if propDelims[i] == c {
			return true
		}
	}
	return false
}

// PropUint reads the token at position i as an unsigned value. Missing,
// empty or unparsable tokens yield 0, which backends treat as
// "unchanged".
func PropUint(tokens []string, i int) uint32 {
	if i >= len(tokens) || tokens[i] == "" {
		return 0
	}
	v, err := strconv.ParseUint(tokens[i], 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
