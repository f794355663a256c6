package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/olekukonko/tablewriter"

	"neochat/domain"
)

// Snapshot artifact inspector. Lists the chat_log_*.json files of a
// directory, or dumps one artifact as a table.
func main() {
	dir := flag.String("dir", "chat_logs", "Snapshot directory to scan")
	file := flag.String("file", "", "Single artifact to dump (overrides -dir listing)")
	flag.Parse()

	if *file != "" {
		if err := dump(*file); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := list(*dir); err != nil {
		log.Fatal(err)
	}
}

func list(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "chat_log_*.json"))
	if err != nil {
		return err
	}
	sort.Strings(paths)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"File", "Saved", "Messages", "Lifetime", "Online"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, path := range paths {
		snap, err := read(path)
		if err != nil {
			// keep scanning instead of stopping on one bad artifact
			fmt.Printf("Error reading %s: %v\n", path, err)
			continue
		}
		table.Append([]string{
			filepath.Base(path),
			snap.SaveTime,
			fmt.Sprintf("%d", snap.TotalMessages),
			fmt.Sprintf("%d", snap.MessageCount),
			fmt.Sprintf("%d", snap.CurrentOnlineUsers),
		})
	}
	table.Render()
	return nil
}

func dump(path string) error {
	snap, err := read(path)
	if err != nil {
		return err
	}

	fmt.Printf("saved %s, server started %s, online %d\n\n",
		snap.SaveTime, snap.ServerStartTime, snap.CurrentOnlineUsers)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "Time", "Type", "Author", "Message"})
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range snap.Messages {
		body := m.Message
		if len(body) > 60 {
			body = body[:60] + "..."
		}
		table.Append([]string{
			fmt.Sprintf("%d", m.Sequence),
			m.Time,
			string(m.Type),
			m.Username,
			body,
		})
	}
	table.Render()
	return nil
}

func read(path string) (domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Snapshot{}, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("unmarshaling %s: %w", path, err)
	}
	return snap, nil
}
