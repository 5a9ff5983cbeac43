// Package sections splits the free-form analysis text returned by the model into the
// six headed parts the dashboard shows as tabs.
//
// Parsing is best effort. A section that cannot be located is absent from the result;
// it is never an empty string and never an error. The raw text is kept by callers so
// nothing is lost when segmentation fails.
package sections

// Key names one section of the analysis.
type Key string

const (
	Summary    Key = "summary"
	Visual     Key = "visual"
	Audio      Key = "audio"
	Themes     Key = "themes"
	Timestamps Key = "timestamps"
	Insights   Key = "insights"
)

// Keys lists the sections in heading order.
var Keys = []Key{Summary, Visual, Audio, Themes, Timestamps, Insights}

type heading struct {
	ordinal int
	label   string
	title   string
	icon    string
	color   string
}

var headings = map[Key]heading{
	Summary:    {ordinal: 1, label: "Resumo Geral", title: "Resumo Geral", icon: "file-text", color: "gray"},
	Visual:     {ordinal: 2, label: "Análise Visual", title: "Análise Visual", icon: "eye", color: "blue"},
	Audio:      {ordinal: 3, label: "Análise de Áudio", title: "Análise de Áudio", icon: "volume", color: "green"},
	Themes:     {ordinal: 4, label: "Temas e Mensagens", title: "Temas e Mensagens", icon: "message-square", color: "purple"},
	Timestamps: {ordinal: 5, label: "Timestamps Importantes", title: "Timestamps Importantes", icon: "clock", color: "orange"},
	Insights:   {ordinal: 6, label: "Insights e Análise", title: "Insights e Análise", icon: "lightbulb", color: "red"},
}

// Sections maps found keys to their trimmed, non-empty body text.
type Sections map[Key]string

// Get returns the body for k and whether it was found.
func (s Sections) Get(k Key) (string, bool) {
	v, ok := s[k]
	return v, ok
}

// Present lists the found keys in heading order.
func (s Sections) Present() []Key {
	out := make([]Key, 0, len(s))
	for _, k := range Keys {
		if _, ok := s[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Tab is one renderable section.
type Tab struct {
	Key     Key    `json:"key"`
	Title   string `json:"title"`
	Icon    string `json:"icon"`
	Color   string `json:"color"`
	Content string `json:"content"`
}

// Tabs returns the found sections with their display metadata, in heading order.
func (s Sections) Tabs() []Tab {
	keys := s.Present()
	out := make([]Tab, 0, len(keys))
	for _, k := range keys {
		h := headings[k]
		out = append(out, Tab{Key: k, Title: h.title, Icon: h.icon, Color: h.color, Content: s[k]})
	}
	return out
}

// Title is the display heading for k.
func (k Key) Title() string {
	return headings[k].title
}
