package main

import "github.com/urfave/cli/v3"

func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search songs, artists or regional lyrics sites",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Search mode: song, artist or regional",
				Value:   "song",
			},
			&cli.StringFlag{
				Name:  "artist",
				Usage: "Selected artist name, lists that artist's songs",
			},
			&cli.StringSliceFlag{
				Name:  "handle",
				Usage: "Selected artist handle as provider:id (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Search,
	}
}

func lyricsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "lyrics",
		Aliases: []string{"l"},
		Usage:   "Fetch lyrics for a song",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "title",
				Aliases:  []string{"t"},
				Usage:    "Song title",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "artist",
				Aliases: []string{"a"},
				Usage:   "Artist name",
			},
			&cli.StringFlag{
				Name:  "handle",
				Usage: "Song handle as provider:id",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Lyrics,
	}
}

func replCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "Interactive search session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "mode",
				Aliases: []string{"m"},
				Usage:   "Starting search mode",
				Value:   "song",
			},
		},
		Action: r.REPL,
	}
}
