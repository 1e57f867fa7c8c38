package resolver

// maskSource returns a copy of src in which comments and the contents of
// string and template literals no longer look like code. Comments become
// spaces and literal contents become '_'. Quotes, newlines and the byte
// offsets of everything else are preserved, so a match found in the masked
// copy can be sliced out of src. Code inside template substitutions
// ("${...}") stays visible.
func maskSource(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	// One entry per open "${", counting the braces opened inside it.
	var depth []int

	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '/' && at(src, i+1) == '/':
			for i < len(src) && src[i] != '\n' {
				out[i] = ' '
				i++
			}
		case c == '/' && at(src, i+1) == '*':
			out[i], out[i+1] = ' ', ' '
			i += 2
			for i < len(src) && !(src[i] == '*' && at(src, i+1) == '/') {
				if src[i] != '\n' {
					out[i] = ' '
				}
				i++
			}
			if i < len(src) {
				out[i], out[i+1] = ' ', ' '
				i += 2
			}
		case c == '\'' || c == '"':
			i = maskString(src, out, i)
		case c == '`':
			i = maskTemplate(src, out, i+1, &depth)
		case c == '{' && len(depth) > 0:
			depth[len(depth)-1]++
			i++
		case c == '}' && len(depth) > 0:
			top := len(depth) - 1
			if depth[top] > 0 {
				depth[top]--
				i++
				continue
			}
			depth = depth[:top]
			i = maskTemplate(src, out, i+1, &depth)
		default:
			i++
		}
	}
	return out
}

// maskString masks the quoted literal starting at src[start] and returns
// the offset just past it. An unterminated literal ends at the newline.
func maskString(src, out []byte, start int) int {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		switch src[i] {
		case quote:
			return i + 1
		case '\n':
			return i
		case '\\':
			out[i] = '_'
			if i+1 < len(src) && src[i+1] != '\n' {
				out[i+1] = '_'
			}
			i += 2
			continue
		}
		out[i] = '_'
		i++
	}
	return len(src)
}

// maskTemplate masks template literal text from src[i] up to the closing
// backtick or the next "${", which pushes a new substitution onto depth.
func maskTemplate(src, out []byte, i int, depth *[]int) int {
	for i < len(src) {
		switch {
		case src[i] == '`':
			return i + 1
		case src[i] == '$' && at(src, i+1) == '{':
			*depth = append(*depth, 0)
			return i + 2
		case src[i] == '\\':
			out[i] = '_'
			if i+1 < len(src) && src[i+1] != '\n' {
				out[i+1] = '_'
			}
			i += 2
			continue
		case src[i] != '\n':
			out[i] = '_'
		}
		i++
	}
	return len(src)
}

func at(src []byte, i int) byte {
	if i < len(src) {
		return src[i]
	}
	return 0
}
