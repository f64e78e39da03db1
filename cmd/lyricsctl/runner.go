package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"lyrics-finder-go/services/engine"
	"lyrics-finder-go/services/providers"

	"github.com/urfave/cli/v3"
)

// Runner holds the engine and output streams for every command action.
type Runner struct {
	engine *engine.Engine
	in     io.Reader
	out    io.Writer
	outMu  sync.Mutex
}

type RunnerOpts struct {
	Engine *engine.Engine
	In     io.Reader
	Out    io.Writer
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Runner{engine: opts.Engine, in: opts.In, out: opts.Out}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range []func(*Runner) *cli.Command{searchCommand, lyricsCommand, replCommand} {
		commands = append(commands, fn(r))
	}
	return commands
}

func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	mode, err := providers.ParseSearchMode(cmd.String("mode"))
	if err != nil {
		return err
	}
	artist, err := selectedArtist(cmd.String("artist"), cmd.StringSlice("handle"))
	if err != nil {
		return err
	}

	query := strings.Join(cmd.Args().Slice(), " ")
	result, err := r.engine.Search(ctx, query, mode, artist)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(result)
	}
	r.printSearch(result)
	return nil
}

func (r *Runner) Lyrics(ctx context.Context, cmd *cli.Command) error {
	song := providers.Song{Title: cmd.String("title"), ArtistName: cmd.String("artist")}
	if h := cmd.String("handle"); h != "" {
		handle, err := parseHandle(h)
		if err != nil {
			return err
		}
		song.Handle = &handle
	}

	result := r.engine.ResolveLyrics(ctx, song)
	if cmd.Bool("json") {
		return r.writeJSON(result)
	}
	r.printLyrics(result)
	if !result.Resolved() {
		return fmt.Errorf("no lyrics: %s", result.ErrorKind)
	}
	return nil
}

func selectedArtist(name string, handles []string) (*providers.Artist, error) {
	if name == "" && len(handles) == 0 {
		return nil, nil
	}
	artist := &providers.Artist{Name: name, Handles: make(map[string]providers.Handle)}
	for _, h := range handles {
		handle, err := parseHandle(h)
		if err != nil {
			return nil, err
		}
		artist.Handles[handle.Provider] = handle
		if artist.ID == "" {
			artist.ID = handle.ID
		}
	}
	return artist, nil
}

func parseHandle(s string) (providers.Handle, error) {
	provider, id, ok := strings.Cut(s, ":")
	if !ok || provider == "" || id == "" {
		return providers.Handle{}, fmt.Errorf("handle %q must be provider:id", s)
	}
	return providers.Handle{Provider: provider, ID: id}, nil
}

func (r *Runner) writeJSON(data any) error {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func (r *Runner) printf(format string, args ...any) {
	r.outMu.Lock()
	defer r.outMu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

func (r *Runner) printSearch(result *providers.SearchResult) {
	if result.Notice != "" {
		r.printf("%s\n", result.Notice)
	}
	for i, a := range result.Artists {
		r.printf("%2d. %s\n", i+1, a.Name)
	}
	for i, s := range result.Songs {
		line := fmt.Sprintf("%2d. %s - %s", i+1, s.Title, s.ArtistName)
		if s.AlbumName != "" {
			line += " (" + s.AlbumName + ")"
		}
		r.printf("%s\n", line)
	}
	if result.Empty() && result.Notice == "" {
		r.printf("No results.\n")
	}
}

func (r *Runner) printLyrics(result *providers.LyricsResult) {
	if !result.Resolved() {
		r.printf("No lyrics (%s): %s\n", result.ErrorKind, result.Message)
		return
	}
	r.printf("[%s]\n\n%s\n", result.SourceName, result.Text)
	if names := otherSources(result); len(names) > 0 {
		r.printf("\nAlso available from: %s\n", strings.Join(names, ", "))
	}
}

// otherSources names the alternatives that differ from the displayed text.
// Guidance results list themselves as their only alternative.
func otherSources(result *providers.LyricsResult) []string {
	var names []string
	for _, alt := range result.Alternatives {
		if alt.Name == result.SourceName && alt.Text == result.Text {
			continue
		}
		names = append(names, alt.Name)
	}
	return names
}
