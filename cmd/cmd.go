package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/xhad/newsrag/internal/models"
	"github.com/xhad/newsrag/pkg/rag"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question loop over the indexed headlines",
	Long: `Starts an interactive session. Type a question to get an answer grounded in
today's headlines, "/refresh" to fetch the page again, "/news" to list the
indexed headlines and "exit" to quit.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	return a.chat(cmd.Context(), os.Stdin)
}

func (a *app) chat(ctx context.Context, in io.Reader) error {
	color.Cyan("\nChat with today's Bloomberg Asia news (type 'exit' to quit)")
	if !a.service.Ready() {
		color.Yellow("No news indexed yet, type '/refresh' to fetch the latest headlines.")
	}

	scanner := bufio.NewScanner(in)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		// slash commands; anything else is a question
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "/exit":
			return nil
		case "/refresh":
			_ = a.refresh(ctx)
			continue
		case "/news":
			printNews(a.service.Items())
			continue
		}

		_ = a.ask(ctx, query)

		if ctx.Err() != nil {
			return nil
		}
	}

	return scanner.Err()
}

func (a *app) refresh(ctx context.Context) error {
	spinner := getSpinner(" Fetching and indexing headlines...")
	result, err := a.service.Refresh(ctx)
	spinner.Finish()

	if err != nil {
		a.report(err)
		return errReported
	}
	color.Green("✓ Indexed %d headlines (dimension %d) in %s\n",
		result.Items, result.Dimension, result.Duration.Round(time.Millisecond))
	return nil
}

func (a *app) ask(ctx context.Context, question string) error {
	spinner := getSpinner(" Thinking...")
	answer, err := a.service.Answer(ctx, question)
	spinner.Finish()

	if err != nil {
		a.report(err)
		return errReported
	}
	printAnswer(answer)
	return nil
}

func (a *app) report(err error) {
	switch {
	case errors.Is(err, rag.ErrNoNews):
		color.Yellow("No news found.")
	case errors.Is(err, rag.ErrNoIndex):
		color.Yellow("No news indexed yet, run a refresh first.")
	case errors.Is(err, rag.ErrEmptyQuestion):
		color.Yellow("Please enter a question.")
	default:
		color.Red("Something went wrong, please try again.")
		a.log.Error("request failed", slog.Any("err", err))
	}
}

func printAnswer(answer *models.Answer) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	assistantPrompt("\nAssistant: ")
	fmt.Println(answer.Text)

	if len(answer.Sources) == 0 {
		return
	}
	color.Blue("\nReferenced headlines:")
	for _, item := range answer.Sources {
		fmt.Printf("  - %s\n    %s\n", item.Title, color.HiBlackString(item.Link))
	}
}

func printNews(items []models.NewsItem) {
	if len(items) == 0 {
		color.Yellow("No news indexed yet.")
		return
	}
	for i, item := range items {
		fmt.Printf("%2d. %s\n    %s\n", i+1, item.Title, color.HiBlackString(item.Link))
	}
}
