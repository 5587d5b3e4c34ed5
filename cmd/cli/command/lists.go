package command

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"releasewatch/cmd/cli/command/client"
	"releasewatch/cmd/cli/dto"
)

var (
	listPage  int
	listLimit int
)

var listsCmd = &cobra.Command{
	Use:   "lists [list]",
	Short: "Show the cached movie lists",
	Long:  `Without arguments prints the served list names. With a list name prints one page of it.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient := client.NewHTTPClient(apiURL)

		if len(args) == 0 {
			names, err := httpClient.ListNames()
			if err != nil {
				return fmt.Errorf("failed to get lists: %w", err)
			}
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		}

		page, err := httpClient.GetListPage(args[0], listPage, listLimit)
		if err != nil {
			return fmt.Errorf("failed to get list %s: %w", args[0], err)
		}
		printPage(page)
		return nil
	},
}

func printPage(page *dto.ListPageResponse) {
	bold := color.New(color.Bold)
	bold.Printf("%s  page %d/%d  (%d movies)\n", page.List, page.Page, page.TotalPages, page.TotalCount)
	fmt.Println(strings.Repeat("-", 60))
	if len(page.Movies) == 0 {
		fmt.Println("No movies on this page.")
		return
	}
	for _, m := range page.Movies {
		fmt.Printf("%-10s %s (%d)\n", m.ReleaseDate, m.Title, m.ID)
		if m.Releases.Theatrical != nil {
			fmt.Printf("           theatrical %s\n", m.Releases.Theatrical.Format("2006-01-02"))
		}
		if m.Releases.Streaming != nil {
			fmt.Printf("           streaming  %s\n", m.Releases.Streaming.Format("2006-01-02"))
		}
	}
	if !page.BuiltAt.IsZero() {
		color.New(color.Faint).Printf("built %s\n", page.BuiltAt.Local().Format("2006-01-02 15:04:05"))
	}
}

func init() {
	listsCmd.Flags().IntVarP(&listPage, "page", "p", 1, "page number")
	listsCmd.Flags().IntVarP(&listLimit, "limit", "l", 20, "movies per page")
	rootCmd.AddCommand(listsCmd)
}
