package workers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"

	"neochat/contract"
)

// ConsoleWorker is the local operator surface: line commands `stats`,
// `list`, `savelog` and `quit`, with any other line broadcast to the
// room as a "Server"-authored chat message. Output goes to the
// operator terminal only, never to participants.
type ConsoleWorker struct {
	log      *slog.Logger
	relay    contract.IRelay
	in       io.Reader
	out      io.Writer
	shutdown context.CancelFunc
}

func NewConsoleWorker(log *slog.Logger, relay contract.IRelay, in io.Reader, out io.Writer, shutdown context.CancelFunc) *ConsoleWorker {
	return &ConsoleWorker{log: log, relay: relay, in: in, out: out, shutdown: shutdown}
}

func (w *ConsoleWorker) Run(ctx context.Context) error {
	w.log.Info("Operator console ready (stats, list, savelog, quit)")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(w.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				// stdin closed (EOF); console is done but the server keeps running
				return nil
			}
			w.handle(strings.TrimSpace(line))
		}
	}
}

func (w *ConsoleWorker) handle(line string) {
	switch strings.ToLower(line) {
	case "":
	case "stats":
		w.printStats()
	case "list":
		w.printList()
	case "savelog":
		if path, err := w.relay.Snapshot(); err != nil {
			fmt.Fprintln(w.out, color.Red.Sprintf("log save failed: %v", err))
		} else {
			fmt.Fprintln(w.out, color.Green.Sprintf("log saved to %s", path))
		}
	case "quit", "exit", "stop":
		w.log.Warn("Shutdown requested from console")
		w.relay.SystemBroadcast("Server is shutting down")
		w.shutdown()
	default:
		w.relay.ServerBroadcast(line)
		fmt.Fprintln(w.out, color.Green.Sprintf("broadcast: %s", line))
	}
}

func (w *ConsoleWorker) printStats() {
	st := w.relay.Stats()
	fmt.Fprintln(w.out, color.Cyan.Sprintf("uptime:          %s", st.Uptime(time.Now()).Round(time.Second)))
	fmt.Fprintln(w.out, color.Cyan.Sprintf("online:          %d", st.Online))
	fmt.Fprintln(w.out, color.Cyan.Sprintf("total messages:  %d", st.TotalMessages))
	fmt.Fprintln(w.out, color.Cyan.Sprintf("buffered:        %d", w.relay.LogSize()))

	rss, cpu, err := selfStats()
	if err != nil {
		w.log.Debug("Self stats unavailable", "error", err)
		return
	}
	fmt.Fprintln(w.out, color.Cyan.Sprintf("rss:             %.1f MB", float64(rss)/(1024*1024)))
	fmt.Fprintln(w.out, color.Cyan.Sprintf("cpu:             %.1f%%", cpu))
}

func (w *ConsoleWorker) printList() {
	active := w.relay.ListActive()
	if len(active) == 0 {
		fmt.Fprintln(w.out, color.Yellow.Sprint("no users online"))
		return
	}

	fmt.Fprintln(w.out, color.Cyan.Sprintf("online users (%d):", len(active)))
	table := tablewriter.NewWriter(w.out)
	table.SetHeader([]string{"Name", "Transport", "Origin", "Online"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	now := time.Now()
	for _, p := range active {
		table.Append([]string{
			p.Name,
			string(p.Kind),
			p.Origin,
			now.Sub(p.JoinedAt).Round(time.Second).String(),
		})
	}
	table.Render()
}

// selfStats reads RSS and CPU usage of this process.
func selfStats() (uint64, float64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
