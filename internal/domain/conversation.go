package domain

import (
	"time"
)

// ResponseKind tags a response so renderers can dispatch without inspecting content.
type ResponseKind string

const (
	// ResponseText is a natural-language or scalar answer.
	ResponseText ResponseKind = "text"
	// ResponseTable is a derived tabular result.
	ResponseTable ResponseKind = "table"
	// ResponseImage references a rendered chart on disk.
	ResponseImage ResponseKind = "image"
)

// Response is the tagged result of answering one question.
type Response struct {
	Kind      ResponseKind `json:"kind"`
	Text      string       `json:"text,omitempty"`
	Table     *Dataset     `json:"table,omitempty"`
	ImagePath string       `json:"-"`
	Failed    bool         `json:"failed,omitempty"`
}

// TextResponse wraps a textual answer.
func TextResponse(text string) Response {
	return Response{Kind: ResponseText, Text: text}
}

// TableResponse wraps a derived dataset.
func TableResponse(table *Dataset) Response {
	return Response{Kind: ResponseTable, Table: table}
}

// ImageResponse wraps the path of a rendered chart.
func ImageResponse(path string) Response {
	return Response{Kind: ResponseImage, ImagePath: path}
}

// FailedResponse turns an error into a text response so the conversation can continue.
func FailedResponse(err error) Response {
	return Response{
		Kind:   ResponseText,
		Text:   "Sorry, I could not answer that: " + err.Error(),
		Failed: true,
	}
}

// ConversationEntry is one (user message, response) pair of a transcript.
type ConversationEntry struct {
	ID          string    `json:"id"`
	UserMessage string    `json:"user_message"`
	Response    Response  `json:"response"`
	Synthetic   bool      `json:"synthetic,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Selection is the database and collection currently chosen in a session.
type Selection struct {
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

// HasDatabase returns true if a database has been chosen.
func (s Selection) HasDatabase() bool {
	return s.Database != ""
}

// Complete returns true when both database and collection are chosen.
// A dataset may only be fetched for a complete selection.
func (s Selection) Complete() bool {
	return s.Database != "" && s.Collection != ""
}
