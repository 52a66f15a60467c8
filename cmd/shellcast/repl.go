package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"shellcast/internal/catalog"
	"shellcast/internal/download"
	"shellcast/internal/msg"
)

// repl is a deliberately plain presentation layer: it reads commands
// from stdin, translates them to intents, and prints notifications. It
// renders from catalog snapshots only, never from live state.
type repl struct {
	catalog   *catalog.Catalog
	downloads *download.Manager
	tx        chan<- msg.Message
	notify    <-chan msg.Notification
	done      chan struct{}
}

func newRepl(cat *catalog.Catalog, downloads *download.Manager, tx chan<- msg.Message, notify <-chan msg.Notification) *repl {
	return &repl{
		catalog:   cat,
		downloads: downloads,
		tx:        tx,
		notify:    notify,
		done:      make(chan struct{}),
	}
}

func (r *repl) run() {
	go r.consumeNotifications()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("shellcast ready; type 'help' for commands")
	for scanner.Scan() {
		if quit := r.dispatch(strings.Fields(scanner.Text())); quit {
			return
		}
	}
	// EOF on stdin quits too.
	r.tx <- msg.Quit{}
}

// wait blocks until the controller has said TearDown.
func (r *repl) wait() {
	<-r.done
}

func (r *repl) consumeNotifications() {
	for n := range r.notify {
		switch n := n.(type) {
		case msg.RefreshMenus:
			r.list()
		case msg.ShowMessage:
			fmt.Printf("* %s\n", n.Text)
		case msg.TearDown:
			close(r.done)
			return
		}
	}
}

func (r *repl) dispatch(fields []string) (quit bool) {
	if len(fields) == 0 {
		r.tx <- msg.Noop{}
		return false
	}

	switch fields[0] {
	case "q", "quit":
		r.tx <- msg.Quit{}
		return true
	case "help":
		r.help()
	case "list", "ls":
		r.list()
	case "add":
		if len(fields) == 2 {
			r.tx <- msg.AddFeed{URL: fields[1]}
		} else {
			fmt.Println("usage: add <url>")
		}
	case "sync":
		if len(fields) == 2 && fields[1] == "all" {
			r.tx <- msg.SyncAll{}
		} else if i, ok := index(fields, 1); ok {
			r.tx <- msg.Sync{Pod: i}
		} else {
			fmt.Println("usage: sync <podcast>|all")
		}
	case "play":
		if p, e, ok := pair(fields); ok {
			r.tx <- msg.Play{Pod: p, Ep: e}
		}
	case "played":
		if p, e, ok := pair(fields); ok {
			r.tx <- msg.MarkPlayed{Pod: p, Ep: e, Played: true}
		}
	case "unplayed":
		if p, e, ok := pair(fields); ok {
			r.tx <- msg.MarkPlayed{Pod: p, Ep: e, Played: false}
		}
	case "playedall":
		if i, ok := index(fields, 1); ok {
			r.tx <- msg.MarkAllPlayed{Pod: i, Played: true}
		}
	case "download":
		if p, e, ok := pair(fields); ok {
			r.tx <- msg.Download{Pod: p, Ep: e}
		}
	case "downloadall":
		if i, ok := index(fields, 1); ok {
			r.tx <- msg.DownloadAll{Pod: i}
		}
	case "status":
		if p, e, ok := pair(fields); ok {
			r.status(p, e)
		}
	default:
		fmt.Printf("unknown command: %s\n", fields[0])
	}
	return false
}

func (r *repl) list() {
	snapshot := r.catalog.Snapshot()
	if len(snapshot) == 0 {
		fmt.Println("no podcasts; use 'add <url>'")
		return
	}
	for i, pod := range snapshot {
		marker := " "
		if pod.Info.AnyUnplayed {
			marker = "*"
		}
		fmt.Printf("%2d %s %s\n", i, marker, pod.Info.Title)
		for j, ep := range pod.Episodes {
			played := " "
			if ep.Played {
				played = "x"
			}
			fmt.Printf("   %3d [%s] %s\n", j, played, ep.MenuTitle(70))
		}
	}
}

func (r *repl) status(pod, ep int) {
	episode, ok := r.catalog.Episode(pod, ep)
	if !ok {
		fmt.Println("no such episode")
		return
	}
	if st, ok := r.downloads.Status(episode.ID); ok {
		fmt.Printf("%s: %s\n", episode.Title, st)
		return
	}
	fmt.Printf("%s: not downloading\n", episode.Title)
}

func (r *repl) help() {
	fmt.Print(`commands:
  list                     show podcasts and episodes
  add <url>                subscribe to a feed
  sync <podcast>|all       re-fetch feed(s)
  play <podcast> <ep>      play a local file or stream
  played <podcast> <ep>    mark episode played
  unplayed <podcast> <ep>  mark episode unplayed
  playedall <podcast>      mark all episodes played
  download <podcast> <ep>  download one episode
  downloadall <podcast>    download every episode
  status <podcast> <ep>    show download state
  quit
`)
}

func index(fields []string, at int) (int, bool) {
	if at >= len(fields) {
		return 0, false
	}
	i, err := strconv.Atoi(fields[at])
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func pair(fields []string) (int, int, bool) {
	p, ok1 := index(fields, 1)
	e, ok2 := index(fields, 2)
	if !ok1 || !ok2 {
		fmt.Printf("usage: %s <podcast> <episode>\n", fields[0])
		return 0, 0, false
	}
	return p, e, true
}
