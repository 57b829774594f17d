package domain

// ============================================================
// CFO Virtual (rule-based finance Q&A)
// ============================================================

// CFOChatRequest is a free-text finance question about one company.
type CFOChatRequest struct {
	Message string `json:"message"`
}

// CFOChatReply is the answer, rendered as markdown, plus the data
// sources the answer was enriched from.
type CFOChatReply struct {
	Response   string   `json:"response"`
	Sources    []string `json:"sources"`
	Disclaimer string   `json:"disclaimer"`
}
