package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/thatonemovie/thatonemovie/internal/llm"
	"github.com/thatonemovie/thatonemovie/internal/metadata"
	"github.com/thatonemovie/thatonemovie/internal/recommend"
	"github.com/thatonemovie/thatonemovie/internal/validation"
)

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	var req recommend.Request
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Generate recommendations from the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.New().Validate(&req); err != nil {
				return err
			}

			cfg := ctx.config
			log := ctx.newLogger("warn", false)
			defer log.Close()

			catalog := metadata.NewService(cfg.Metadata, log.Logger)
			client := llm.NewClient(cfg.AI, log.Logger)
			if !client.IsConfigured() {
				fmt.Fprintln(cmd.ErrOrStderr(), "ai.api_key is not set, showing fallback recommendations")
			}
			service := recommend.NewService(client, recommend.NewEnricher(catalog.Client(), cfg.AI.EnrichWorkers, log.Logger), log.Logger)

			resp := service.Recommend(cmd.Context(), req)

			out := cmd.OutOrStdout()
			if jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			fmt.Fprintln(out, renderRecommendations(resp))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.MovieTitle, "title", "", "Find movies similar to this title")
	flags.StringSliceVar(&req.Genres, "genre", nil, "Preferred genre (repeatable)")
	flags.StringSliceVar(&req.Actors, "actor", nil, "Preferred actor (repeatable)")
	flags.StringSliceVar(&req.Directors, "director", nil, "Preferred director (repeatable)")
	flags.StringVar(&req.Description, "description", "", "Free-form description of the movie you want")
	flags.StringVar(&req.Mood, "mood", "", "Desired mood")
	flags.StringVar(&req.Era, "era", "", "Preferred era, e.g. 1990s")
	flags.BoolVar(&jsonOutput, "json", false, "Print the response as JSON")

	return cmd
}

func renderRecommendations(resp recommend.Response) string {
	headers := []string{"#", "Title", "Year", "TMDB", "Reason"}
	rows := make([][]string, 0, len(resp.Recommendations))
	for i, r := range resp.Recommendations {
		tmdbID := "-"
		if r.TMDBMovie != nil {
			tmdbID = strconv.Itoa(r.TMDBMovie.ID)
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), r.Title, r.Year, tmdbID, r.Reason})
	}
	table := renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft})
	return table + "\nsource: " + string(resp.Source)
}
