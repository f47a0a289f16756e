package story

// Page is one unit of a generated story: narration text plus the prompt used
// to illustrate it. Pages are produced once by story generation and are
// read-only afterwards.
type Page struct {
	Text        string `json:"text"`
	ImagePrompt string `json:"imagePrompt"`
}

// Story is a generated storybook: the premise it grew from and its pages.
type Story struct {
	Premise string `json:"premise"`
	Pages   []Page `json:"pages"`
}
