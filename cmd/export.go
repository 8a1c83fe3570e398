package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/exportify/internal/formatter"
	"github.com/desertthunder/exportify/internal/services"
	"github.com/desertthunder/exportify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Export fetches a playlist with its full track listing and writes it to disk
// in the requested format.
//
// Each round of upstream pagination runs under the configured fetch budget;
// when a round comes back partial the export resumes from the returned offset
// until the playlist is exhausted.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	playlistID := cmd.String("id")
	format := cmd.String("format")
	outputFile := cmd.String("output")

	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	token, err := client.BasicToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	r.logger.Infof("exporting playlist %v", playlistID)

	playlist, err := client.Playlist(ctx, token.AccessToken, playlistID)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist details: %w", err)
	}

	tracks := []services.Track{}
	offset := 0
	for {
		budgetCtx, cancel := context.WithTimeout(ctx, config.Server.FetchBudget())
		result, err := client.PlaylistTracks(budgetCtx, token.AccessToken, playlistID, offset)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to fetch playlist tracks: %w", err)
		}

		tracks = append(tracks, result.Items...)
		if result.Complete {
			break
		}

		offset = result.ResumeOffset
		r.logger.Info("resuming export", "offset", offset, "fetched", len(tracks))
	}

	export := &services.PlaylistExport{Playlist: *playlist, Tracks: tracks}

	var written []string
	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(export, outputFile)
		if err != nil {
			return err
		}
		written = []string{result.TracksFile, result.MetadataFile}
	case "json":
		file, err := formatter.WriteJSONExport(export, outputFile)
		if err != nil {
			return err
		}
		written = []string{file}
	case "text":
		file, err := formatter.WriteTextExport(export, outputFile)
		if err != nil {
			return err
		}
		written = []string{file}
	default:
		return fmt.Errorf("%w: unknown format %q (expected csv, json or text)", shared.ErrBadRequest, format)
	}

	r.writePlain("%s\n", styles.title.Render("Export complete"))
	r.writePlain("  Playlist: %s\n", playlist.Name)
	r.writePlain("  Tracks: %d\n", len(tracks))
	for _, file := range written {
		r.writePlain("%s Wrote %s\n", styles.okMark(), file)
	}

	return nil
}

// PlaylistInfo fetches a playlist's metadata and prints it as JSON.
func (r *Runner) PlaylistInfo(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)
	playlistID := cmd.String("id")
	pretty := cmd.Bool("pretty")

	client, err := r.spotifyClient()
	if err != nil {
		return err
	}

	token, err := client.BasicToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain access token: %w", err)
	}

	playlist, err := client.Playlist(ctx, token.AccessToken, playlistID)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist details: %w", err)
	}

	return r.writeJSON(playlist, pretty)
}
