package model

import "time"

// Document represents a retrieved source used as reference material.
// Documents are produced once per retrieval pass and are read-only afterwards.
type Document struct {
	ID        string       `json:"id"`                 // Stable per-task ordinal (e.g., "S1")
	Title     string       `json:"title,omitempty"`    // Page or file title
	URL       string       `json:"url,omitempty"`      // Origin URL (empty for local corpus files)
	Snippet   string       `json:"snippet,omitempty"`  // Short preview text
	Content   string       `json:"content"`            // Extracted text, truncated to MaxContentLength
	Type      DocumentType `json:"type"`               // Content kind
	FetchedAt time.Time    `json:"fetched_at"`         // When the document was retrieved
}

// DocumentType classifies the content kind of a retrieved document
type DocumentType string

const (
	DocTypeHTML    DocumentType = "html"
	DocTypePDF     DocumentType = "pdf"
	DocTypeText    DocumentType = "text"
	DocTypeError   DocumentType = "error"
	DocTypeUnknown DocumentType = "unknown"
)
