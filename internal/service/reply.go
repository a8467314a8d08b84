package service

import "stock-assistant/internal/command"

// Button is one inline button; Token is the opaque payload the transport
// echoes back when it is pressed.
type Button struct {
	Label string `json:"label"`
	Token string `json:"token"`
}

// Reply is an outbound chat message: text plus optional rows of buttons. The
// transport adapter is responsible for rendering; the core only decides
// content.
type Reply struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

func textReply(text string) *Reply {
	return &Reply{Text: text}
}

func button(label string, action command.Action) Button {
	return Button{Label: label, Token: action.Token()}
}

// buttonGrid lays buttons out in rows of the given width, mirroring the
// two-column product pickers of the chat UI.
func buttonGrid(buttons []Button, width int) [][]Button {
	if width < 1 {
		width = 1
	}
	var rows [][]Button
	for len(buttons) > 0 {
		n := width
		if len(buttons) < n {
			n = len(buttons)
		}
		rows = append(rows, buttons[:n])
		buttons = buttons[n:]
	}
	return rows
}
