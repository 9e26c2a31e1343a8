// SPDX-License-Identifier: MIT
package morse

// tree is the Morse code table laid out as a binary heap: the root is at
// index 1, a dot moves from i to 2i and a dash to 2i+1. Zero entries are
// groups with no assigned character. Six elements fit below index 128.
var tree = [128]byte{
	2: 'E', 3: 'T',
	4: 'I', 5: 'A', 6: 'N', 7: 'M',
	8: 'S', 9: 'U', 10: 'R', 11: 'W', 12: 'D', 13: 'K', 14: 'G', 15: 'O',
	16: 'H', 17: 'V', 18: 'F', 20: 'L', 22: 'P', 23: 'J',
	24: 'B', 25: 'X', 26: 'C', 27: 'Y', 28: 'Z', 29: 'Q',
	32: '5', 33: '4', 35: '3', 39: '2', 40: '&', 42: '+', 47: '1',
	48: '6', 49: '=', 50: '/', 54: '(', 56: '7', 60: '8', 62: '9', 63: '0',
	76: '?', 77: '_', 82: '"', 85: '.', 90: '@', 94: '\'', 97: '-',
	106: ';', 107: '!', 109: ')', 115: ',', 120: ':',
}

// Unknown is rendered for element groups with no table entry.
const Unknown = '?'

// Translate looks up a group of '.' and '-' elements. It reports false for
// an empty group, a group containing other bytes, or an unassigned group.
func Translate(code string) (byte, bool) {
	if code == "" {
		return 0, false
	}
	idx := 1
	for i := 0; i < len(code); i++ {
		switch code[i] {
		case byte(Dot):
			idx = idx * 2
		case byte(Dash):
			idx = idx*2 + 1
		default:
			return 0, false
		}
		if idx >= len(tree) {
			return 0, false
		}
	}
	c := tree[idx]
	return c, c != 0
}
