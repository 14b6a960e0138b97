package notify

import "strings"

// Error categories stored on failed jobs and used to pick user-facing text.
const (
	CategoryCorruptFile       = "corrupt_file"
	CategoryUnsupportedFormat = "unsupported_format"
	CategoryTooLarge          = "too_large"
	CategoryTimeout           = "timeout"
	CategoryParserUnavailable = "parser_unavailable"
	CategoryUnknown           = "unknown"
)

// categoryPatterns maps lowercase substrings of raw parser errors to a
// category. First match wins, checked in declaration order.
var categoryPatterns = []struct {
	substrings []string
	category   string
}{
	{[]string{"corrupt", "damaged", "xref", "malformed", "invalid pdf"}, CategoryCorruptFile},
	{[]string{"unsupported", "unknown format", "not a supported", "file type"}, CategoryUnsupportedFormat},
	{[]string{"too large", "file size", "exceeds", "payload too large"}, CategoryTooLarge},
	{[]string{"timeout", "timed out", "deadline exceeded"}, CategoryTimeout},
	{[]string{"connection refused", "unavailable", "502", "503", "no such host"}, CategoryParserUnavailable},
}

// userMessages holds the templated, non-technical message and optional
// suggested action per category.
var userMessages = map[string]struct {
	message string
	action  string
}{
	CategoryCorruptFile: {
		message: "This file appears to be damaged and could not be read.",
		action:  "Try re-uploading the document",
	},
	CategoryUnsupportedFormat: {
		message: "This file type is not supported.",
		action:  "Upload a PDF, Word, or Excel document",
	},
	CategoryTooLarge: {
		message: "This file is too large to process.",
		action:  "Split the document and upload the parts separately",
	},
	CategoryTimeout: {
		message: "Processing took too long and was stopped.",
		action:  "Try again, or contact support if it keeps happening",
	},
	CategoryParserUnavailable: {
		message: "The document service is temporarily unavailable.",
		action:  "Try again in a few minutes",
	},
	CategoryUnknown: {
		message: "Something went wrong while processing this document.",
		action:  "Contact support",
	},
}

// Classify maps a raw error string to a category.
func Classify(raw string) string {
	lowered := strings.ToLower(raw)
	for _, entry := range categoryPatterns {
		for _, sub := range entry.substrings {
			if strings.Contains(lowered, sub) {
				return entry.category
			}
		}
	}
	return CategoryUnknown
}

// UserMessage returns the templated message and suggested action for a
// category, falling back to the unknown entry.
func UserMessage(category string) (string, string) {
	entry, ok := userMessages[category]
	if !ok {
		entry = userMessages[CategoryUnknown]
	}
	return entry.message, entry.action
}
