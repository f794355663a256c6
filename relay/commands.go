package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"neochat/domain"
)

const helpText = "Available commands: /help, /online, /ping, /stats, /savelog"

// handleDirective answers a slash command from a participant. The
// input is consumed: it is never broadcast and never sequenced. The
// returned line goes to the requester alone.
func (c *Coordinator) handleDirective(name, text string) string {
	cmd := strings.ToLower(strings.Fields(text)[0])

	var body string
	switch cmd {
	case "/help":
		body = helpText

	case "/online":
		names := lo.Map(c.ListActive(), func(p domain.Participant, _ int) string {
			return p.Name
		})
		body = fmt.Sprintf("Online users (%d): %s", len(names), strings.Join(names, ", "))

	case "/ping":
		body = "Pong! Server is up"

	case "/stats":
		st := c.Stats()
		body = fmt.Sprintf("Server stats: uptime %s, total messages %d, online %d, buffered %d",
			st.Uptime(time.Now()).Round(time.Second), st.TotalMessages, st.Online, c.LogSize())

	case "/savelog":
		if path, err := c.Snapshot(); err != nil {
			body = "Log save failed"
		} else {
			body = "Log saved to " + path
		}

	default:
		body = fmt.Sprintf("Unknown command: %s, type /help for the command list", cmd)
	}

	c.log.Info("Directive handled", "user", name, "command", cmd)
	return renderPrivate(body)
}
