package bot

// Chunk splits text into pieces of at most size runes, cutting after the last
// newline inside the limit when there is one.
func Chunk(text string, size int) []string {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	for len(runes) > size {
		cut := size
		for i := size - 1; i > 0; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		chunks = append(chunks, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
