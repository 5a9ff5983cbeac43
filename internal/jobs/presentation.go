package jobs

// Presentation is how a status is shown in the UI.
type Presentation struct {
	Status Status `json:"status"`
	Icon   string `json:"icon"`
	Color  string `json:"color"`
	Label  string `json:"label"`
	Spin   bool   `json:"spin"`
}

var presentations = map[Status]Presentation{
	StatusPending:    {Status: StatusPending, Icon: "clock", Color: "yellow", Label: "Aguardando processamento"},
	StatusProcessing: {Status: StatusProcessing, Icon: "refresh", Color: "blue", Label: "Processando vídeo", Spin: true},
	StatusCompleted:  {Status: StatusCompleted, Icon: "check-circle", Color: "green", Label: "Análise concluída"},
	StatusFailed:     {Status: StatusFailed, Icon: "x-circle", Color: "red", Label: "Falha na análise"},
	StatusCancelled:  {Status: StatusCancelled, Icon: "alert-circle", Color: "gray", Label: "Análise cancelada"},
	StatusUnknown:    {Status: StatusUnknown, Icon: "clock", Color: "gray", Label: "Status desconhecido"},
}

// PresentationFor returns the display row for s, falling back to the unknown row.
func PresentationFor(s Status) Presentation {
	if p, ok := presentations[s]; ok {
		return p
	}
	return presentations[StatusUnknown]
}

// PresentationTable returns every row, known statuses first and unknown last.
func PresentationTable() []Presentation {
	out := make([]Presentation, 0, len(Statuses)+1)
	for _, s := range Statuses {
		out = append(out, presentations[s])
	}
	return append(out, presentations[StatusUnknown])
}
