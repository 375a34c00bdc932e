package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/urfave/cli/v2"

	"github.com/fireline-edge/fireline/internal/domain/store"
)

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Operator dashboard: poll an edge node's /stats",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "http://127.0.0.1:3000", Usage: "Edge node base HTTP address"},
			&cli.DurationFlag{Name: "interval", Value: 2 * time.Second, Usage: "Poll interval"},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.String("addr"), c.Duration("interval"))
		},
	}
}

// runMonitor is read-only: it never opens a websocket or sends a frame, it
// only scrapes the observability-only /stats endpoint (infra/http
// Server.handleStats), never the framed-message protocol itself.
func runMonitor(addr string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("monitor: failed to init terminal ui: %w", err)
	}
	defer ui.Close()

	p := widgets.NewParagraph()
	p.Title = "fireline edge node"
	p.SetRect(0, 0, 50, 8)

	client := &http.Client{Timeout: 3 * time.Second}
	statsURL := addr + "/stats"

	draw := func() {
		stats, err := fetchStats(client, statsURL)
		if err != nil {
			p.Text = fmt.Sprintf("addr: %s\n\nerror: %v", addr, err)
		} else {
			p.Text = fmt.Sprintf("addr: %s\n\nrooms:       %d\nconnections: %d\nsos active:  %d",
				addr, stats.Rooms, stats.Connections, stats.SosActive)
		}
		ui.Render(p)
	}

	draw()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			draw()
		}
	}
}

func fetchStats(client *http.Client, url string) (store.Stats, error) {
	var stats store.Stats
	resp, err := client.Get(url)
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, err
	}
	return stats, nil
}
