package command

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"releasewatch/internal/models"
	"releasewatch/internal/release"
	"releasewatch/internal/repository"
)

var (
	followEmail string
	followTitle string
	followKind  string
)

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Manage release follows",
}

var followAddCmd = &cobra.Command{
	Use:   "add <movie-id>",
	Short: "Follow a movie's release dates for a user",
	Long: `Subscribe a user (by email) to a TMDB movie. The movie row is created when missing;
its release dates are fetched by the next discovery pass.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var movieID int64
		if _, err := fmt.Sscan(args[0], &movieID); err != nil || movieID <= 0 {
			return fmt.Errorf("invalid movie id %q", args[0])
		}
		kind, ok := release.ParseFollowKind(followKind)
		if !ok {
			return fmt.Errorf("invalid kind %q, want theatrical, streaming or both", followKind)
		}

		_, db, err := openDB()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		user, err := repository.NewUserRepository(db).FindByEmail(ctx, followEmail)
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("no user with email %s", followEmail)
		}
		if err != nil {
			return err
		}

		movies := repository.NewMovieRepository(db)
		if _, err := movies.GetByID(ctx, movieID); errors.Is(err, repository.ErrMovieNotFound) {
			if followTitle == "" {
				return fmt.Errorf("movie %d is new, pass --title", movieID)
			}
			if err := movies.Save(ctx, &models.Movie{ID: movieID, Title: followTitle}); err != nil {
				return fmt.Errorf("failed to save movie: %w", err)
			}
		} else if err != nil {
			return err
		}

		follow := &models.Follow{UserID: user.ID, MovieID: movieID, Kind: string(kind)}
		if err := repository.NewFollowRepository(db).Create(ctx, follow); err != nil {
			return fmt.Errorf("failed to follow: %w", err)
		}
		color.Green("%s now follows movie %d (%s)", followEmail, movieID, kind)
		return nil
	},
}

var followListCmd = &cobra.Command{
	Use:   "list <movie-id>",
	Short: "List the followers of a movie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var movieID int64
		if _, err := fmt.Sscan(args[0], &movieID); err != nil || movieID <= 0 {
			return fmt.Errorf("invalid movie id %q", args[0])
		}
		_, db, err := openDB()
		if err != nil {
			return err
		}
		rows, err := repository.NewFollowRepository(db).ListForMovies(cmd.Context(), []int64{movieID})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("No followers.")
			return nil
		}
		for _, r := range rows {
			fmt.Printf("%-36s %-30s %s\n", r.UserID, r.Email, r.Kind)
		}
		return nil
	},
}

func init() {
	followAddCmd.Flags().StringVarP(&followEmail, "email", "e", "", "user email")
	followAddCmd.Flags().StringVarP(&followTitle, "title", "t", "", "movie title, required for a new movie")
	followAddCmd.Flags().StringVarP(&followKind, "kind", "k", string(release.FollowBoth), "theatrical, streaming or both")
	followAddCmd.MarkFlagRequired("email")

	followCmd.AddCommand(followAddCmd, followListCmd)
	rootCmd.AddCommand(followCmd)
}
