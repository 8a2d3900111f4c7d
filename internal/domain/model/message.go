package model

// Message is the chat notification produced for one reminder run.
type Message struct {
	Text        string
	Attachments []Attachment
}

// Attachment is one entry of the message, one per blocked merge request.
// Title and TitleLink are empty in the compact layout.
type Attachment struct {
	Title     string
	TitleLink string
	Text      string
	Color     string
}

// Empty reports whether the message has nothing to remind about.
func (m Message) Empty() bool {
	return len(m.Attachments) == 0
}
