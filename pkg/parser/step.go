package parser

import "strings"

const stepTagPrefix = "[STEP:"

// ExtractStep returns the leftmost [STEP:<name>] tag in line.
//
// The prefix is matched case-insensitively and the name is everything up to
// the first closing bracket, kept verbatim. Tags with an empty name are
// skipped. An unterminated tag, or no tag at all, yields NoStep.
func ExtractStep(line string) Step {
	for i := 0; i+len(stepTagPrefix) <= len(line); i++ {
		if line[i] != '[' || !hasPrefixFold(line[i:], stepTagPrefix) {
			continue
		}

		rest := line[i+len(stepTagPrefix):]
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			// No closing bracket anywhere further on, so no later tag can close either.
			return NoStep
		}
		if end == 0 {
			continue
		}
		return NewStep(rest[:end])
	}
	return NoStep
}
