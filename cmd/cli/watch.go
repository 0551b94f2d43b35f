package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/omrhythm/pkg/logger"
	"github.com/himanishpuri/omrhythm/pkg/omrhythm"
	"github.com/himanishpuri/omrhythm/pkg/utils"
)

var watchDelay time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchDelay, "delay", 500*time.Millisecond, "Quiet period before changed files are analyzed")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Analyze system documents as they are written to a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := mustService()
		defer svc.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return watchDir(ctx, svc, args[0], watchDelay)
	},
}

// pendingSet collects the files changed during one quiet period.
type pendingSet struct {
	mu    sync.Mutex
	paths map[string]bool
}

func (p *pendingSet) add(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paths == nil {
		p.paths = make(map[string]bool)
	}
	p.paths[path] = true
}

func (p *pendingSet) drain() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.paths))
	for path := range p.paths {
		out = append(out, path)
	}
	p.paths = nil
	slices.Sort(out)
	return out
}

func watchDir(ctx context.Context, svc omrhythm.Service, dir string, delay time.Duration) error {
	log := logger.GetLogger().WithPrefix("watch")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", dir)

	var pending pendingSet
	debounced := debounce.New(delay)
	flush := func() {
		for _, path := range pending.drain() {
			a, err := svc.AnalyzeFile(ctx, path)
			if err != nil {
				fmt.Printf("❌ %s: %v\n", path, err)
				log.Errorf("Analyze %s failed: %v", path, err)
				continue
			}
			fmt.Printf("✅ %s → %s\n", path, a.ID)
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && utils.IsSystemFile(event.Name) {
				log.Debugf("%s %s", event.Op, event.Name)
				pending.add(event.Name)
				debounced(flush)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Errorf("File watcher error: %v", err)

		case <-ctx.Done():
			fmt.Println("\n👋 Stopping watcher")
			return nil
		}
	}
}
