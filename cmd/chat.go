package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/d365-plugin-assistant/internal/requirements"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Describe a plug-in in an interactive terminal conversation",
	Long: `Starts (or resumes with --session) a requirements conversation in the terminal.

Commands:
  /confirm            confirm the summarized requirements
  /reset              start the conversation over
  /regenerate <logic> regenerate the last plug-in with new logic
  /history            list the plug-ins generated in this session
  /quit               leave (the session is kept)`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().String("session", "", "resume an existing session id")
	chatCmd.Flags().String("user", os.Getenv("USER"), "user id recorded on new sessions")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	sessionID, _ := cmd.Flags().GetString("session")
	if sessionID == "" {
		user, _ := cmd.Flags().GetString("user")
		res, err := a.engine.Start(ctx, user)
		if err != nil {
			return err
		}
		sessionID = res.SessionID
		fmt.Printf("Session %s\n\n", sessionID)
		printReply(res)
	} else {
		sess, err := a.engine.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		if n := len(sess.Transcript); n > 0 {
			fmt.Println(sess.Transcript[n-1].Content)
			fmt.Println()
		}
	}

	prompt := promptui.Prompt{Label: "You"}
	for {
		line, err := prompt.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				fmt.Printf("Session %s saved.\n", sessionID)
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)

		var res *requirements.TurnResult
		switch {
		case line == "/quit":
			fmt.Printf("Session %s saved.\n", sessionID)
			return nil
		case line == "/confirm":
			res, err = a.engine.HandleTurn(ctx, sessionID, requirements.TurnInput{Confirm: true})
		case line == "/reset":
			res, err = a.engine.Reset(ctx, sessionID)
		case line == "/history":
			err = printHistory(a, cmd, sessionID)
		case strings.HasPrefix(line, "/regenerate"):
			logic := strings.TrimSpace(strings.TrimPrefix(line, "/regenerate"))
			if logic == "" {
				fmt.Println("Usage: /regenerate <new logic>")
				continue
			}
			var rec *requirements.CodeRecord
			rec, err = a.engine.Regenerate(ctx, sessionID, logic)
			if err == nil {
				fmt.Printf("\n%s\n\n", rec.Code)
			}
		default:
			res, err = a.engine.HandleTurn(ctx, sessionID, requirements.TurnInput{Content: line})
		}

		if err != nil {
			// The session is unchanged; the user can retry.
			a.logger.Debug("turn failed", zap.String("session", sessionID), zap.Error(err))
			fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
			continue
		}
		if res != nil {
			printReply(res)
		}
	}
}

func printReply(res *requirements.TurnResult) {
	fmt.Printf("\n%s\n\n", res.Reply)
	if res.Ready {
		fmt.Println("(type /confirm or \"confirm\" to generate the plug-in)")
		fmt.Println()
	}
}

func printHistory(a *app, cmd *cobra.Command, sessionID string) error {
	history, err := a.engine.CodeHistory(cmd.Context(), sessionID)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("No plug-ins generated yet.")
		return nil
	}
	for i, h := range history {
		fmt.Printf("%d. %s  %s  %s\n", i+1, h.CreatedAt.Local().Format("2006-01-02 15:04"), h.PluginName, firstLine(h.Logic))
	}
	fmt.Println()
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
