package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"lyrics-finder-go/logcolors"
	"lyrics-finder-go/services/engine"
	"lyrics-finder-go/services/providers"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
)

const replHelp = `Type a query to search. Commands:
  /mode song|artist|regional  switch search mode
  /artist N                   list songs of artist N from the last results
  /clear                      drop the selected artist
  /lyrics N                   fetch lyrics for song N from the last results
  /quit                       exit
`

func (r *Runner) REPL(ctx context.Context, cmd *cli.Command) error {
	mode, err := providers.ParseSearchMode(cmd.String("mode"))
	if err != nil {
		return err
	}
	return r.repl(ctx, engine.NewSession(mode), r.in)
}

// repl runs searches in the background so a new query can supersede one
// still in flight. Superseded results are dropped by the session.
func (r *Runner) repl(ctx context.Context, s *engine.Session, in io.Reader) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	r.printf("%s", replHelp)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit" || line == "/exit":
			return nil
		case strings.HasPrefix(line, "/"):
			if err := r.handleCommand(ctx, s, line, &wg); err != nil {
				r.printf("error: %v\n", err)
			}
		default:
			r.startSearch(ctx, s, line, &wg)
		}
	}
	return scanner.Err()
}

func (r *Runner) handleCommand(ctx context.Context, s *engine.Session, line string, wg *sync.WaitGroup) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/mode":
		mode, err := providers.ParseSearchMode(arg)
		if err != nil {
			return err
		}
		s.SetMode(mode)
		r.printf("mode: %s\n", mode)
	case "/artist":
		if s.Mode() != providers.ModeArtist {
			return fmt.Errorf("/artist needs artist mode")
		}
		result := s.Result()
		n, err := pick(arg, resultLen(result, true))
		if err != nil {
			return err
		}
		artist := result.Artists[n]
		s.SelectArtist(artist)
		r.printf("artist: %s\n", artist.Name)
		r.startSearch(ctx, s, "", wg)
	case "/clear":
		s.ClearArtist()
		r.printf("artist cleared\n")
	case "/lyrics":
		result := s.Result()
		n, err := pick(arg, resultLen(result, false))
		if err != nil {
			return err
		}
		r.startLyrics(ctx, s, result.Songs[n], wg)
	case "/help":
		r.printf("%s", replHelp)
	default:
		return fmt.Errorf("unknown command %s", name)
	}
	return nil
}

func (r *Runner) startSearch(ctx context.Context, s *engine.Session, query string, wg *sync.WaitGroup) {
	token := s.Begin()
	mode := s.Mode()
	artist := s.SelectedArtist()

	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := r.engine.Search(ctx, query, mode, artist)
		if err != nil {
			if s.Current(token) {
				r.printf("error: %v\n", err)
			}
			return
		}
		if !s.Deliver(token, result) {
			log.Debugf("%s Dropped superseded results for %q", logcolors.LogSession, query)
			return
		}
		r.printSearch(result)
	}()
}

func (r *Runner) startLyrics(ctx context.Context, s *engine.Session, song providers.Song, wg *sync.WaitGroup) {
	token := s.Begin()

	wg.Add(1)
	go func() {
		defer wg.Done()
		result := r.engine.ResolveLyrics(ctx, song)
		if !s.DeliverLyrics(token, result) {
			log.Debugf("%s Dropped superseded lyrics for %q", logcolors.LogSession, song.Title)
			return
		}
		r.printLyrics(result)
	}()
}

func resultLen(result *providers.SearchResult, artists bool) int {
	if result == nil {
		return 0
	}
	if artists {
		return len(result.Artists)
	}
	return len(result.Songs)
}

// pick turns a 1-based index into a 0-based one within n results
func pick(arg string, n int) (int, error) {
	if n == 0 {
		return 0, fmt.Errorf("no results to pick from")
	}
	i, err := strconv.Atoi(arg)
	if err != nil || i < 1 || i > n {
		return 0, fmt.Errorf("pick a number between 1 and %d", n)
	}
	return i - 1, nil
}
