// Command embercli is a terminal client for ember.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"ember/internal/client"
	"ember/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8375", "API base URL")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.New(*baseURL)
	dial := func(ctx context.Context) (tui.Stream, error) {
		conn, err := api.Connect(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}

	p := tea.NewProgram(tui.New(ctx, api, dial), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "embercli:", err)
		os.Exit(1)
	}
}
