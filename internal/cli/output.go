package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mcoot/playfield/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w (stdout if nil)
func NewOutput(format string, w io.Writer) *Output {
	if w == nil {
		w = os.Stdout
	}
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(os.Stderr, string(data))
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.PlayerList:
		o.printPlayerList(v)
	case response.Health:
		o.printHealth(v)
	case FieldView:
		o.printFieldView(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// FieldView is what the play command shows of the field
type FieldView struct {
	Phase   string     `json:"phase"`
	Held    string     `json:"held"`
	Players []FieldRow `json:"players"`
}

// FieldRow is one rendered player
type FieldRow struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
	IsSelf bool    `json:"is_self"`
}

func (o *Output) printPlayerList(l response.PlayerList) {
	_, _ = fmt.Fprintf(o.w, "Players (%d):\n", len(l.Players))
	for _, p := range l.Players {
		_, _ = fmt.Fprintf(o.w, "  - %s (%s) at (%g, %g) %s\n", p.Name, p.ID, p.X, p.Y, p.Color)
	}
}

func (o *Output) printHealth(h response.Health) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	_, _ = fmt.Fprintf(o.w, "Storage: %s\n", h.Storage)
	_, _ = fmt.Fprintf(o.w, "Feed clients: %d\n", h.FeedClients)
}

func (o *Output) printFieldView(v FieldView) {
	held := v.Held
	if held == "" {
		held = "-"
	}
	_, _ = fmt.Fprintf(o.w, "[%s] keys: %s\n", v.Phase, held)
	for _, p := range v.Players {
		_, _ = fmt.Fprintf(o.w, "  %-24s (%4.0f, %4.0f)\n", p.Label, p.X, p.Y)
	}
}
