package digest

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

// ChunkResult represents a single chunk of text
type ChunkResult struct {
	ChunkIndex    int
	ChunkCount    int
	ChunkText     string
	SpanStart     int
	SpanEnd       int
	OverlapTokens int
	WordCount     int
	TokenCount    int
}

// ChunkText splits text into overlapping chunks for vector embeddings.
//
// Target is 800-1000 tokens per chunk (~4 chars per token) with 15% overlap
// to preserve context at boundaries. Split points prefer markdown headings,
// then paragraphs, then sentence endings.
func ChunkText(text string, targetTokens int, overlapPercent float64) []ChunkResult {
	if targetTokens <= 0 {
		targetTokens = 900
	}
	if overlapPercent <= 0 {
		overlapPercent = 0.15
	}

	overlapTokens := int(float64(targetTokens) * overlapPercent)

	charsPerToken := 4
	targetChars := targetTokens * charsPerToken
	overlapChars := overlapTokens * charsPerToken

	// Short enough for a single chunk
	if len(text) <= targetChars {
		return []ChunkResult{
			{
				ChunkIndex: 0,
				ChunkCount: 1,
				ChunkText:  text,
				SpanStart:  0,
				SpanEnd:    len(text),
				WordCount:  countWords(text),
				TokenCount: estimateTokens(text),
			},
		}
	}

	var chunks []ChunkResult
	currentPosition := 0
	chunkIndex := 0

	for currentPosition < len(text) {
		isLastChunk := currentPosition+targetChars >= len(text)

		var chunkEnd int
		if isLastChunk {
			chunkEnd = len(text)
		} else {
			chunkEnd = findBoundary(text, currentPosition+targetChars)
		}

		chunkText := text[currentPosition:chunkEnd]

		chunks = append(chunks, ChunkResult{
			ChunkIndex: chunkIndex,
			ChunkText:  chunkText,
			SpanStart:  currentPosition,
			SpanEnd:    chunkEnd,
			WordCount:  countWords(chunkText),
			TokenCount: estimateTokens(chunkText),
		})

		if isLastChunk {
			break
		}

		// Move position forward, accounting for overlap with previous chunk
		currentPosition = chunkEnd - overlapChars
		if currentPosition <= chunks[chunkIndex].SpanStart {
			// Safety: ensure we make progress
			currentPosition = chunks[chunkIndex].SpanStart + 1
		}
		chunkIndex++
	}

	chunkCount := len(chunks)
	for i := range chunks {
		chunks[i].ChunkCount = chunkCount
		if i > 0 {
			chunks[i].OverlapTokens = overlapTokens
		}
	}

	return chunks
}

var (
	headingPattern    = regexp.MustCompile(`\n#{1,6}\s+`)
	paragraphPattern  = regexp.MustCompile(`\n\n+`)
	sentencePattern   = regexp.MustCompile(`[.!?]\s+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// findBoundary finds the optimal position to split text near targetPosition.
// Priority: markdown heading > paragraph break > sentence ending > whitespace.
func findBoundary(text string, targetPosition int) int {
	searchWindow := 800
	start := max(0, targetPosition-searchWindow)
	end := min(len(text), targetPosition+searchWindow)
	searchText := text[start:end]

	if matches := headingPattern.FindAllStringIndex(searchText, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		if last[0] > searchWindow/2 {
			return start + last[0] + 1 // +1 to skip newline
		}
	}

	if matches := paragraphPattern.FindAllStringIndex(searchText, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		if last[0] > searchWindow/2 {
			return start + last[0] + 2 // +2 to skip both newlines
		}
	}

	if matches := sentencePattern.FindAllStringIndex(searchText, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		if last[0] > searchWindow/2 {
			return start + last[0] + 2 // +2 for punctuation + space
		}
	}

	if matches := whitespacePattern.FindAllStringIndex(searchText, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		if last[0] > searchWindow/2 {
			return start + last[0] + 1
		}
	}

	// No good boundary found, split at target
	return targetPosition
}

// countWords counts whitespace-separated words
func countWords(text string) int {
	return len(strings.Fields(text))
}

// estimateTokens approximates token count at 4 chars per token
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// hashString returns the SHA-256 hex digest of a string
func hashString(text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", hash)
}
