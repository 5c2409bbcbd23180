package textsplit

// Span is one chunk of a larger text. Start and End are rune offsets into
// the source, so consecutive spans overlap by the configured amount.
type Span struct {
	Index int
	Text  string
	Start int
	End   int
}

// boundaryWindow is the fraction of the chunk size scanned backwards for a
// sentence boundary before falling back to a hard cut.
const boundaryWindow = 0.2

// Split cuts text into overlapping spans of at most chunkSize runes.
// Cuts prefer sentence boundaries near the end of the window; when none is
// found the cut is hard. The same input always produces the same spans, and
// every rune of the input is covered by at least one span.
func Split(text string, chunkSize, overlap int) []Span {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 4
	}

	runes := []rune(text)
	total := len(runes)
	if total <= chunkSize {
		return []Span{{Index: 0, Text: text, Start: 0, End: total}}
	}

	window := int(float64(chunkSize) * boundaryWindow)
	spans := make([]Span, 0, total/(chunkSize-overlap)+1)
	start := 0
	for start < total {
		end := start + chunkSize
		if end >= total {
			end = total
		} else if cut := lastSentenceEnd(runes, end-window, end); cut > start {
			end = cut
		}

		spans = append(spans, Span{
			Index: len(spans),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end == total {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1 // guarantee forward progress
		}
		start = next
	}
	return spans
}

// lastSentenceEnd returns the rune offset just past the last sentence
// terminator in runes[from:to], or 0 when there is none.
func lastSentenceEnd(runes []rune, from, to int) int {
	if from < 0 {
		from = 0
	}
	for i := to - 1; i >= from; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	return 0
}
